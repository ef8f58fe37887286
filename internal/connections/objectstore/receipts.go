package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"restaurant-automation/internal/common/config"
	"restaurant-automation/internal/domain"
)

// ReceiptArchiveInterface stores a JSON receipt per billed order.
type ReceiptArchiveInterface interface {
	ArchiveBill(ctx context.Context, order domain.Order, items []domain.OrderItem, bill domain.Bill) (string, error)
	ReceiptURL(ctx context.Context, orderNumber string) (string, error)
}

type Receipt struct {
	OrderNumber string             `json:"order_number"`
	Customer    string             `json:"customer"`
	Channel     domain.Channel     `json:"channel"`
	Items       []domain.OrderItem `json:"items"`
	Subtotal    string             `json:"subtotal"`
	TaxRate     string             `json:"tax_rate"`
	Tax         string             `json:"tax"`
	Discount    string             `json:"discount"`
	Total       string             `json:"total"`
	BilledAt    time.Time          `json:"billed_at"`
}

func NewReceipt(order domain.Order, items []domain.OrderItem, bill domain.Bill) Receipt {
	return Receipt{
		OrderNumber: order.Number,
		Customer:    order.CustomerName,
		Channel:     order.Channel,
		Items:       items,
		Subtotal:    bill.Subtotal.StringFixed(2),
		TaxRate:     bill.TaxRate.String(),
		Tax:         bill.Tax.StringFixed(2),
		Discount:    bill.Discount.StringFixed(2),
		Total:       bill.Total.StringFixed(2),
		BilledAt:    bill.CreatedAt,
	}
}

func ReceiptKey(orderNumber string) string { return "receipts/" + orderNumber + ".json" }

type S3ReceiptArchive struct {
	client *s3.Client
	bucket string
}

// NewS3ReceiptArchive builds an S3 client from static credentials when given,
// otherwise from the default AWS credential chain.
func NewS3ReceiptArchive(ctx context.Context, cfg config.StorageConfig) (*S3ReceiptArchive, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3ReceiptArchive{client: client, bucket: cfg.Bucket}, nil
}

func (a *S3ReceiptArchive) ArchiveBill(ctx context.Context, order domain.Order, items []domain.OrderItem, bill domain.Bill) (string, error) {
	body, err := json.Marshal(NewReceipt(order, items, bill))
	if err != nil {
		return "", fmt.Errorf("marshal receipt: %w", err)
	}
	key := ReceiptKey(order.Number)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt to S3: %w", err)
	}
	return key, nil
}

// ReceiptURL returns a presigned link valid for one hour.
func (a *S3ReceiptArchive) ReceiptURL(ctx context.Context, orderNumber string) (string, error) {
	presign := s3.NewPresignClient(a.client)
	req, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(ReceiptKey(orderNumber)),
	}, s3.WithPresignExpires(time.Hour))
	if err != nil {
		return "", fmt.Errorf("failed to presign receipt: %w", err)
	}
	return req.URL, nil
}
