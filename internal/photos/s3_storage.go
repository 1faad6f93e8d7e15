package photos

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/2beens/fittrack/internal/telemetry/tracing"
)

const initMarker = ".init"

type s3Client interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Params struct {
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PresignTTL time.Duration
}

// S3Storage keeps photos in an S3 compatible bucket (MinIO included), one object per slot
// under users/<uid>/slot-<n>/<name>.
type S3Storage struct {
	client     s3Client
	presigner  s3Presigner
	bucket     string
	presignTTL time.Duration
}

var _ Storage = (*S3Storage)(nil)

func NewS3Storage(ctx context.Context, params S3Params) (*S3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(params.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(params.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Storage(client, s3.NewPresignClient(client), params.Bucket, params.PresignTTL), nil
}

func newS3Storage(client s3Client, presigner s3Presigner, bucket string, presignTTL time.Duration) *S3Storage {
	if presignTTL <= 0 {
		presignTTL = 15 * time.Minute
	}
	return &S3Storage{
		client:     client,
		presigner:  presigner,
		bucket:     bucket,
		presignTTL: presignTTL,
	}
}

func userPrefix(userID string) string {
	return "users/" + userID + "/"
}

func objectKey(userID string, slot int, name string) string {
	return userPrefix(userID) + slotFolder(slot) + "/" + name
}

// parseKey returns the slot and name of a photo object key
func parseKey(userID, key string) (int, string, bool) {
	rest, ok := strings.CutPrefix(key, userPrefix(userID))
	if !ok {
		return 0, "", false
	}
	folder, name, ok := strings.Cut(rest, "/")
	if !ok || !ValidName(name) {
		return 0, "", false
	}
	slotStr, ok := strings.CutPrefix(folder, "slot-")
	if !ok {
		return 0, "", false
	}
	slot, err := strconv.Atoi(slotStr)
	if err != nil || !ValidSlot(slot) {
		return 0, "", false
	}
	return slot, name, true
}

func (s *S3Storage) listKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *S3Storage) List(ctx context.Context, userID string) (_ []Photo, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "s3Storage.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	keys, err := s.listKeys(ctx, userPrefix(userID))
	if err != nil {
		return nil, err
	}

	var found []Photo
	for _, key := range keys {
		slot, name, ok := parseKey(userID, key)
		if !ok {
			continue
		}
		req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(s.presignTTL))
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", key, err)
		}
		found = append(found, Photo{Slot: slot, Name: name, URL: req.URL})
	}

	return fillSlots(found), nil
}

func (s *S3Storage) Init(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "s3Storage.init")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(userPrefix(userID) + initMarker),
		Body:   bytes.NewReader(nil),
	}); err != nil {
		return fmt.Errorf("put init marker of %s: %w", userID, err)
	}
	return nil
}

// Upload replaces whatever the slot held before.
func (s *S3Storage) Upload(ctx context.Context, userID string, upload Upload) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "s3Storage.upload")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !ValidSlot(upload.Slot) {
		return ErrInvalidSlot
	}
	if !ValidName(upload.Name) {
		return ErrInvalidName
	}

	slotPrefix := userPrefix(userID) + slotFolder(upload.Slot) + "/"
	previous, err := s.listKeys(ctx, slotPrefix)
	if err != nil {
		return err
	}

	key := objectKey(userID, upload.Slot, upload.Name)
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(upload.Data),
		ContentType:   aws.String(upload.ContentType),
		ContentLength: aws.Int64(int64(len(upload.Data))),
	}); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	for _, prev := range previous {
		if prev == key {
			continue
		}
		if err := s.deleteKey(ctx, prev); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3Storage) Delete(ctx context.Context, userID, name string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "s3Storage.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !ValidName(name) {
		return ErrInvalidName
	}

	keys, err := s.listKeys(ctx, userPrefix(userID))
	if err != nil {
		return err
	}

	deleted := 0
	for _, key := range keys {
		if _, _, ok := parseKey(userID, key); !ok || path.Base(key) != name {
			continue
		}
		if err := s.deleteKey(ctx, key); err != nil {
			return err
		}
		deleted++
	}
	if deleted == 0 {
		return ErrPhotoNotFound
	}
	return nil
}

func (s *S3Storage) deleteKey(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
