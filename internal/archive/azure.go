// Package archive exports ingested mentions to Azure Blob Storage as a cold
// archive. The archive is append-only: mentions are never deleted by this
// subsystem.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/sirupsen/logrus"
	"github.com/stockdash/mentions-bot/internal/models"
)

// Archiver is the contract the scheduler uses for period exports.
type Archiver interface {
	Export(ctx context.Context, name string, mentions []models.Mention) error
}

// AzureArchive writes mention batches to Azure Blob Storage.
type AzureArchive struct {
	client        *azblob.Client
	containerName string
}

// Ensure AzureArchive implements Archiver
var _ Archiver = (*AzureArchive)(nil)

// NewAzureArchive creates an archive client using managed identity.
func NewAzureArchive(accountName, containerName string) (*AzureArchive, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	a := &AzureArchive{
		client:        client,
		containerName: containerName,
	}

	if err := a.ensureContainer(); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return a, nil
}

func (a *AzureArchive) ensureContainer() error {
	ctx := context.Background()

	_, err := a.client.CreateContainer(ctx, a.containerName, nil)
	if err != nil {
		if !strings.Contains(err.Error(), "ContainerAlreadyExists") {
			return fmt.Errorf("failed to create container: %w", err)
		}
		logrus.Debugf("Container %s already exists", a.containerName)
	} else {
		logrus.Infof("Created container %s", a.containerName)
	}

	return nil
}

// Export writes one period's mentions as a JSON blob.
func (a *AzureArchive) Export(ctx context.Context, name string, mentions []models.Mention) error {
	if len(mentions) == 0 {
		logrus.Debugf("Nothing to archive for %s", name)
		return nil
	}

	data, err := json.Marshal(mentions)
	if err != nil {
		return fmt.Errorf("failed to marshal mentions: %w", err)
	}

	_, err = a.client.UploadBuffer(ctx, a.containerName, name, data, &azblob.UploadBufferOptions{
		BlockSize:   int64(1024 * 1024),
		Concurrency: 3,
	})

	if err != nil {
		return fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	logrus.Infof("Archived %d mentions to %s", len(mentions), name)
	return nil
}

// List returns archived blob names under the given prefix.
func (a *AzureArchive) List(ctx context.Context, prefix string) ([]string, error) {
	var blobNames []string
	pager := a.client.NewListBlobsFlatPager(a.containerName, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list blobs: %w", err)
		}

		for _, blob := range page.Segment.BlobItems {
			if blob.Name != nil {
				blobNames = append(blobNames, *blob.Name)
			}
		}
	}

	return blobNames, nil
}
