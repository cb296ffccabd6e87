package azure

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.uber.org/zap"
)

// BlobOptions configures a BlobStorageClient. A connection string wins over
// account name and key.
type BlobOptions struct {
	ConnectionString string
	AccountName      string
	AccountKey       string
	// Endpoint overrides https://<account>.blob.core.windows.net/
	Endpoint  string
	Container string
}

// BlobStorageClient wraps Azure Blob Storage SDK for report storage
type BlobStorageClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewBlobStorageClient creates a new Azure Blob Storage client
func NewBlobStorageClient(opts BlobOptions, logger *zap.Logger) (*BlobStorageClient, error) {
	if opts.Container == "" {
		return nil, fmt.Errorf("container name is required")
	}

	var client *azblob.Client
	var err error
	switch {
	case opts.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(opts.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client from connection string: %w", err)
		}
	case opts.AccountName != "" && opts.AccountKey != "":
		serviceURL := opts.Endpoint
		if serviceURL == "" {
			serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", opts.AccountName)
		}
		if !strings.HasSuffix(serviceURL, "/") {
			serviceURL += "/"
		}

		credential, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}

		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create blob client: %w", err)
		}
	default:
		return nil, fmt.Errorf("either a connection string or account name and key are required")
	}

	return &BlobStorageClient{
		client:        client,
		containerName: opts.Container,
		logger:        logger,
	}, nil
}

// EnsureContainer creates the report container when it does not exist
func (c *BlobStorageClient) EnsureContainer(ctx context.Context) error {
	_, err := c.client.CreateContainer(ctx, c.containerName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create container %s: %w", c.containerName, err)
	}
	return nil
}

// UploadReport uploads a PDF report and returns its blob name
func (c *BlobStorageClient) UploadReport(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" {
		return "", fmt.Errorf("report name is required")
	}

	c.logger.Info("uploading report to blob storage",
		zap.String("name", name),
		zap.Int("size_bytes", len(data)),
	)

	blobName := reportBlobName(name)
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": toPtr("application/pdf"),
		},
	})
	if err != nil {
		c.logger.Error("failed to upload report",
			zap.String("name", name),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	return blobName, nil
}

// DownloadReport downloads a PDF report by name
func (c *BlobStorageClient) DownloadReport(ctx context.Context, name string) ([]byte, error) {
	blobName := reportBlobName(name)
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	downloadResponse, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, ErrReportNotFound
		}
		c.logger.Error("failed to download report",
			zap.String("blob_name", blobName),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to download report: %w", err)
	}
	defer downloadResponse.Body.Close()

	data, err := io.ReadAll(downloadResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report data: %w", err)
	}

	c.logger.Debug("report downloaded",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	return data, nil
}

func toPtr(s string) *string {
	return &s
}
