package services

import (
	"context"

	"clouddrive/logger"
	"clouddrive/models"
	"clouddrive/repositories"
	"clouddrive/storage"

	"gorm.io/gorm"
)

// filePurger removes a file or folder subtree for good: blobs, version
// history, shares, the catalog rows, and the owner's usage counters.
// Blob deletes are best-effort and happen before the row transaction so a
// storage hiccup never leaves dangling catalog rows pointing at nothing.
type filePurger struct {
	txManager TxManager
	files     repositories.FileRepository
	versions  repositories.VersionRepository
	shares    repositories.ShareRepository
	quotas    repositories.QuotaRepository
	blob      storage.BlobStore
}

func (p filePurger) purge(ctx context.Context, root models.File) error {
	nodes, err := p.collectSubtree(ctx, root)
	if err != nil {
		return err
	}

	var freedBytes int64
	var freedFiles int64
	for _, node := range nodes {
		if node.IsFolder {
			continue
		}
		freedFiles++
		freedBytes += node.Size

		versions, err := p.versions.ListByFile(ctx, nil, node.ID)
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, v := range versions {
			if v.StoragePath == "" || seen[v.StoragePath] {
				continue
			}
			seen[v.StoragePath] = true
			freedBytes += p.versionOverhead(v, node)
			if err := p.blob.Delete(ctx, v.StoragePath); err != nil {
				logger.Errorf("blob delete failed for %s: %v", v.StoragePath, err)
			}
		}
		if node.StoragePath != "" && !seen[node.StoragePath] {
			if err := p.blob.Delete(ctx, node.StoragePath); err != nil {
				logger.Errorf("blob delete failed for %s: %v", node.StoragePath, err)
			}
		}
		if node.ThumbnailPath != "" {
			if err := p.blob.Delete(ctx, node.ThumbnailPath); err != nil {
				logger.Errorf("thumbnail delete failed for %s: %v", node.ThumbnailPath, err)
			}
		}
	}

	return p.txManager.WithTransaction(ctx, func(tx *gorm.DB) error {
		// Children first so the parent_id chain never points at a gone row.
		for i := len(nodes) - 1; i >= 0; i-- {
			node := nodes[i]
			if err := p.versions.DeleteByFile(ctx, tx, node.ID); err != nil {
				return err
			}
			if err := p.shares.DeleteByFile(ctx, tx, node.ID); err != nil {
				return err
			}
			if err := p.files.DeleteByID(ctx, tx, node.ID); err != nil {
				return err
			}
		}
		if freedBytes > 0 || freedFiles > 0 {
			return p.quotas.SubUsage(ctx, tx, root.UserID, freedBytes, freedFiles)
		}
		return nil
	})
}

// versionOverhead counts the bytes a historical version holds beyond the
// file's current size, which is already tallied by the caller.
func (p filePurger) versionOverhead(v models.FileVersion, node models.File) int64 {
	if v.StoragePath == node.StoragePath {
		return 0
	}
	return v.Size
}

// collectSubtree returns root plus all descendants in breadth-first order.
func (p filePurger) collectSubtree(ctx context.Context, root models.File) ([]models.File, error) {
	nodes := []models.File{root}
	queue := []uint{}
	if root.IsFolder {
		queue = append(queue, root.ID)
	}

	for len(queue) > 0 {
		parentID := queue[0]
		queue = queue[1:]

		children, err := p.files.ListByParent(ctx, nil, root.UserID, parentID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			nodes = append(nodes, child)
			if child.IsFolder {
				queue = append(queue, child.ID)
			}
		}
	}
	return nodes, nil
}
