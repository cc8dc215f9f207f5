package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const PresignExpiry = 15 * time.Minute

func getS3Client() (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			os.Getenv("R2_ACCESS_KEY"),
			os.Getenv("R2_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", os.Getenv("R2_ACCOUNT_ID")))
		o.UsePathStyle = true
		o.Region = "auto"
	})

	return client, nil
}

func publicURL(objectKey string) string {
	base := os.Getenv("R2_PUBLIC_URL")
	if base == "" {
		base = "https://cdn.alurai.com"
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(base, "/"), objectKey)
}

// ObjectKey builds an organized, URL-safe key under the user's namespace:
// users/<username>/<kind>/<unique>.<ext>
func ObjectKey(username, kind, filename string) string {
	safeUsername := slug.Make(username)
	ext := filepath.Ext(filename)
	uniqueID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String())
	return filepath.Join("users", safeUsername, kind, uniqueID+ext)
}

type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
	PublicURL string `json:"public_url"`
	ExpiresIn int64  `json:"expires_in"`
}

// PresignUpload returns a time-limited PUT URL so clients upload directly
// to the object store without proxying through the API.
func PresignUpload(objectKey, contentType string) (PresignedUpload, error) {
	client, err := getS3Client()
	if err != nil {
		return PresignedUpload{}, err
	}

	presigner := s3.NewPresignClient(client)
	req, err := presigner.PresignPutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(os.Getenv("R2_BUCKET_NAME")),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("could not presign upload: %v", err)
	}

	return PresignedUpload{
		UploadURL: req.URL,
		ObjectKey: objectKey,
		PublicURL: publicURL(objectKey),
		ExpiresIn: int64(PresignExpiry.Seconds()),
	}, nil
}

// PresignDownload returns a time-limited GET URL for a stored object.
func PresignDownload(objectKey string) (string, error) {
	client, err := getS3Client()
	if err != nil {
		return "", err
	}

	presigner := s3.NewPresignClient(client)
	req, err := presigner.PresignGetObject(context.TODO(), &s3.GetObjectInput{
		Bucket: aws.String(os.Getenv("R2_BUCKET_NAME")),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("could not presign download: %v", err)
	}

	return req.URL, nil
}

// Upload writes a processed buffer (branding logos go through here after
// re-encoding) and returns the public URL.
func Upload(objectKey, contentType string, body *bytes.Buffer) (string, error) {
	client, err := getS3Client()
	if err != nil {
		return "", err
	}

	_, err = client.PutObject(context.TODO(), &s3.PutObjectInput{
		Bucket:      aws.String(os.Getenv("R2_BUCKET_NAME")),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("could not upload file: %v", err)
	}

	return publicURL(objectKey), nil
}

// Delete removes an object given its public URL.
func Delete(fullURL string) error {
	objectKey := keyFromURL(fullURL)
	if objectKey == "" {
		return nil
	}

	client, err := getS3Client()
	if err != nil {
		return err
	}

	_, err = client.DeleteObject(context.TODO(), &s3.DeleteObjectInput{
		Bucket: aws.String(os.Getenv("R2_BUCKET_NAME")),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("could not delete file: %v", err)
	}

	return nil
}

func keyFromURL(url string) string {
	base := os.Getenv("R2_PUBLIC_URL")
	if base == "" {
		base = "https://cdn.alurai.com"
	}
	return strings.TrimPrefix(strings.TrimPrefix(url, strings.TrimSuffix(base, "/")), "/")
}
