// Package s3 provides an artifact.Store backed by Amazon S3 and a
// DynamoDB-backed run registry for coordinating experiment checkpoints
// across writers.
package s3
