package exec

import (
	"context"
	"fmt"

	"github.com/nrktql/fileql/aws"
	"github.com/nrktql/fileql/plan"
)

// Build lowers an optimized logical plan into an executable
// Iterator tree, one case per plan.Node implementation. key
// supplies S3 credentials for any Scan whose source is an s3://
// locator; it may be nil when no query in the plan touches S3.
// warnings, when non-nil, is shared by every Scan the plan
// contains and accumulates their recoverable data-quality notices.
func Build(ctx context.Context, node plan.Node, key *aws.SigningKey, warnings *[]string) (Iterator, error) {
	switch n := node.(type) {
	case *plan.Scan:
		return NewScan(ctx, n, key, warnings)
	case *plan.Filter:
		child, err := Build(ctx, n.Child, key, warnings)
		if err != nil {
			return nil, err
		}
		return newFilter(child, n.Predicate), nil
	case *plan.Project:
		child, err := Build(ctx, n.Child, key, warnings)
		if err != nil {
			return nil, err
		}
		return newProject(child, n.Columns, n.Schema()), nil
	case *plan.Aggregate:
		child, err := Build(ctx, n.Child, key, warnings)
		if err != nil {
			return nil, err
		}
		return newAggregate(child, n.GroupKeys, n.Aggs, n.Schema()), nil
	case *plan.Sort:
		child, err := Build(ctx, n.Child, key, warnings)
		if err != nil {
			return nil, err
		}
		return newSort(child, n.Keys), nil
	case *plan.Limit:
		child, err := Build(ctx, n.Child, key, warnings)
		if err != nil {
			return nil, err
		}
		return newLimit(child, n.N), nil
	case *plan.Join:
		left, err := Build(ctx, n.Left, key, warnings)
		if err != nil {
			return nil, err
		}
		right, err := Build(ctx, n.Right, key, warnings)
		if err != nil {
			return nil, err
		}
		return newJoin(left, right, n.Condition, n.Kind, n.Schema())
	default:
		return nil, fmt.Errorf("exec: unknown plan node %T", node)
	}
}
