// Package artifact provides storage backends for experiment artifacts such
// as strategy checkpoints. A Store maps names to whole byte blobs; local
// disk and in-memory implementations live here, with S3, DynamoDB, and
// MinIO backends in subpackages.
package artifact
