package blob

import (
	"errors"
	"strings"
)

const defaultPrefix = "snapshots/"

type S3Config struct {
	BucketName string `json:"bucket"`
	Region     string `json:"region"`
	AccessKey  string `json:"access_key"`
	SecretKey  string `json:"secret_key"`
	Endpoint   string `json:"endpoint,omitempty"` // MinIO or other S3 compatible endpoint
	Prefix     string `json:"prefix,omitempty"`
}

func (c *S3Config) Validate() error {
	if c.BucketName == "" {
		return errors.New("s3: bucket is required")
	}
	if c.Region == "" && c.Endpoint == "" {
		return errors.New("s3: region or endpoint is required")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("s3: access key and secret key must be set together")
	}
	return nil
}

func (c *S3Config) prefix() string {
	if c.Prefix == "" {
		return defaultPrefix
	}
	return strings.TrimSuffix(c.Prefix, "/") + "/"
}
