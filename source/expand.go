package source

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/nrktql/fileql/aws"
	"github.com/nrktql/fileql/aws/s3"
	"github.com/nrktql/fileql/fsutil"
)

// Expand resolves a FROM-clause locator that names a directory or
// contains glob metacharacters (*, ?, [) into the concrete list of
// locators it matches, preserving each match's discovered
// partitions. A locator naming a single ordinary file or HTTP(S)
// URL passes through unchanged. S3 locators are listed with ambient
// credentials; ExpandWithKey takes an explicit key instead.
//
// Local globs walk an os.DirFS rooted at the locator's constant
// (non-glob) prefix via fsutil.WalkGlob.
func Expand(loc Locator) ([]Locator, error) {
	return ExpandWithKey(loc, nil)
}

// ExpandWithKey is Expand with an explicit S3 signing key, for
// callers that already hold one instead of relying on ambient
// environment credentials (see aws.AmbientKey).
func ExpandWithKey(loc Locator, key *aws.SigningKey) ([]Locator, error) {
	switch loc.Scheme {
	case SchemeFile:
		if fsutil.MetaPrefix(loc.Path) == loc.Path {
			fi, err := os.Stat(loc.Path)
			if err != nil {
				return nil, err
			}
			if !fi.IsDir() {
				return []Locator{loc}, nil
			}
			return expandDir(loc)
		}
		return expandGlob(loc)
	case SchemeS3:
		return expandS3(loc, key)
	default:
		return []Locator{loc}, nil
	}
}

// expandDir recurses through every file under a directory locator,
// including partition subdirectories at any depth. fsutil.WalkGlob
// is reserved for explicit glob patterns (expandGlob below), since
// its single "*" pattern only matches one path segment and can't
// express an unbounded partition directory depth.
func expandDir(loc Locator) ([]Locator, error) {
	root := loc.Path
	var out []Locator
	err := fs.WalkDir(os.DirFS(root), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		out = append(out, Locator{Scheme: SchemeFile, Path: root + "/" + p, Fragment: loc.Fragment})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: expanding directory %q: %w", root, err)
	}
	return out, nil
}

func expandGlob(loc Locator) ([]Locator, error) {
	pre := fsutil.MetaPrefix(loc.Path)
	root := pre
	if root == "" {
		root = "."
	}
	fsys := os.DirFS(root)
	rel := loc.Path[len(pre):]
	for len(rel) > 0 && rel[0] == '/' {
		rel = rel[1:]
	}
	files, err := fsutil.OpenGlob(fsys, rel)
	if err != nil {
		return nil, fmt.Errorf("source: expanding glob %q: %w", loc.Path, err)
	}
	out := make([]Locator, len(files))
	for i, f := range files {
		defer f.Close()
		full := f.Path()
		if root != "." {
			full = root + "/" + full
		}
		out[i] = Locator{Scheme: SchemeFile, Path: full, Fragment: loc.Fragment}
	}
	return out, nil
}

// expandS3 resolves a directory- or glob-shaped S3 locator by
// listing the bucket through s3.BucketFS instead of a local
// filesystem walk. A bucket has no real directory
// hierarchy, so a bare (non-glob) key prefix is expanded by listing
// every object under it at any depth (BucketFS.ListPrefix) rather
// than fsutil.WalkGlob's single-path-segment "*", which can't
// express the variable partition depth Hive-style layouts use.
func expandS3(loc Locator, key *aws.SigningKey) ([]Locator, error) {
	bucket, prefix, err := splitBucketKey(loc.Path)
	if err != nil {
		return []Locator{loc}, nil
	}
	if key == nil {
		key, err = aws.AmbientKey("s3", s3.DeriveForBucket(bucket))
		if err != nil {
			return nil, &AuthError{Locator: "s3://" + loc.Path, Err: err}
		}
	}
	bfs := &s3.BucketFS{Key: key, Bucket: bucket}

	if fsutil.MetaPrefix(prefix) != prefix {
		files, err := fsutil.OpenGlob(bfs, prefix)
		if err != nil {
			return nil, fmt.Errorf("source: expanding s3 glob %q: %w", loc.Path, err)
		}
		out := make([]Locator, len(files))
		for i, f := range files {
			defer f.Close()
			out[i] = Locator{Scheme: SchemeS3, Path: bucket + "/" + f.Path(), Fragment: loc.Fragment}
		}
		return out, nil
	}

	if _, err := s3.Stat(key, bucket, prefix); err == nil {
		return []Locator{loc}, nil
	}
	files, err := bfs.ListPrefix(prefix)
	if err != nil {
		return nil, fmt.Errorf("source: expanding s3 prefix %q: %w", loc.Path, err)
	}
	out := make([]Locator, len(files))
	for i, f := range files {
		out[i] = Locator{Scheme: SchemeS3, Path: bucket + "/" + f.Path(), Fragment: loc.Fragment}
	}
	return out, nil
}
