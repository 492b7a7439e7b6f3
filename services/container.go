package services

import (
	"clouddrive/repositories"
	"clouddrive/storage"
)

// Container wires every service over a shared repository set and blob store.
type Container struct {
	Auth     AuthService
	Quota    QuotaService
	File     FileService
	Version  VersionService
	Share    ShareService
	Billing  BillingService
	Cleanup  CleanupService
	Notifier Notifier
}

func NewContainer(repos repositories.Container, blob storage.BlobStore) *Container {
	notifier := NewNotifier(repos.Events)
	quota := NewQuotaService(repos.Quotas)

	return &Container{
		Auth:     NewAuthService(repos.TxManager, repos.Users, repos.Blacklist, quota),
		Quota:    quota,
		File:     NewFileService(repos.TxManager, repos.Users, repos.Files, repos.Versions, repos.Shares, repos.Quotas, quota, blob, notifier),
		Version:  NewVersionService(repos.TxManager, repos.Files, repos.Versions, repos.Quotas, quota, blob, notifier),
		Share:    NewShareService(repos.Users, repos.Files, repos.Shares, blob, notifier),
		Billing:  NewBillingService(repos.TxManager, repos.Users, repos.Quotas, quota),
		Cleanup:  NewCleanupService(repos.TxManager, repos.Files, repos.Versions, repos.Shares, repos.Quotas, blob),
		Notifier: notifier,
	}
}
