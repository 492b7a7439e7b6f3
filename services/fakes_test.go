package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"clouddrive/models"
	"clouddrive/repositories"

	"gorm.io/gorm"
)

type fakeTxManager struct {
	err error
}

func (m *fakeTxManager) WithTransaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	if m.err != nil {
		return m.err
	}
	return fn(nil)
}

type fakeUserRepo struct {
	users     map[uint]models.User
	nextID    uint
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]models.User{}, nextID: 1}
}

func (r *fakeUserRepo) CountByEmail(_ context.Context, email string) (int64, error) {
	var count int64
	for _, u := range r.users {
		if u.Email == email {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, user *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ *gorm.DB, email string) (models.User, error) {
	if r.getErr != nil {
		return models.User{}, r.getErr
	}
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, _ *gorm.DB, userID uint) (models.User, error) {
	if r.getErr != nil {
		return models.User{}, r.getErr
	}
	if u, ok := r.users[userID]; ok {
		return u, nil
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, _ *gorm.DB, userID uint, updates map[string]interface{}) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if name, ok := updates["name"].(string); ok {
		u.Name = name
	}
	if avatar, ok := updates["avatar"].(string); ok {
		u.Avatar = avatar
	}
	r.users[userID] = u
	return nil
}

type fakeFileRepo struct {
	files       map[uint]models.File
	nextID      uint
	createErr   error
	updateErr   error
	listErr     error
	fulltextErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: map[uint]models.File{}, nextID: 1}
}

func (r *fakeFileRepo) Create(_ context.Context, _ *gorm.DB, file *models.File) error {
	if r.createErr != nil {
		return r.createErr
	}
	if file.ID == 0 {
		file.ID = r.nextID
		r.nextID++
	}
	r.files[file.ID] = *file
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, _ *gorm.DB, fileID uint) (models.File, error) {
	if f, ok := r.files[fileID]; ok {
		return f, nil
	}
	return models.File{}, gorm.ErrRecordNotFound
}

func (r *fakeFileRepo) GetByIDAndUser(_ context.Context, _ *gorm.DB, fileID uint, userID uint) (models.File, error) {
	f, ok := r.files[fileID]
	if !ok || f.UserID != userID {
		return models.File{}, gorm.ErrRecordNotFound
	}
	return f, nil
}

func (r *fakeFileRepo) matches(f models.File, in repositories.ListFilesInput) bool {
	if f.UserID != in.UserID || f.IsDeleted != in.Deleted {
		return false
	}
	if in.Starred != nil && f.IsStarred != *in.Starred {
		return false
	}
	if in.Search != "" {
		if !strings.Contains(strings.ToLower(f.Name), strings.ToLower(in.Search)) {
			return false
		}
	} else if in.ParentSet {
		if in.ParentID == nil {
			if f.ParentID != nil {
				return false
			}
		} else if f.ParentID == nil || *f.ParentID != *in.ParentID {
			return false
		}
	}
	return true
}

func (r *fakeFileRepo) listMatching(in repositories.ListFilesInput) ([]models.File, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	if in.SearchMode == repositories.SearchModeFulltext && r.fulltextErr != nil {
		return nil, r.fulltextErr
	}
	out := make([]models.File, 0)
	for _, f := range r.files {
		if r.matches(f, in) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeFileRepo) List(ctx context.Context, tx *gorm.DB, in repositories.ListFilesInput) ([]models.File, error) {
	out, err := r.listMatching(in)
	if err != nil {
		return nil, err
	}
	if in.Offset >= len(out) {
		return []models.File{}, nil
	}
	out = out[in.Offset:]
	if in.Limit > 0 && in.Limit < len(out) {
		out = out[:in.Limit]
	}
	return out, nil
}

func (r *fakeFileRepo) Count(_ context.Context, _ *gorm.DB, in repositories.ListFilesInput) (int64, error) {
	out, err := r.listMatching(in)
	if err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}

func (r *fakeFileRepo) ListByParent(_ context.Context, _ *gorm.DB, userID uint, parentID uint) ([]models.File, error) {
	out := make([]models.File, 0)
	for _, f := range r.files {
		if f.UserID == userID && f.ParentID != nil && *f.ParentID == parentID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeFileRepo) UpdateByIDAndUser(_ context.Context, _ *gorm.DB, fileID uint, userID uint, updates map[string]interface{}) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	f, ok := r.files[fileID]
	if !ok || f.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "name":
			f.Name = value.(string)
		case "is_starred":
			f.IsStarred = value.(bool)
		case "is_deleted":
			f.IsDeleted = value.(bool)
		case "deleted_at":
			if value == nil {
				f.DeletedAt = nil
			} else {
				at := value.(time.Time)
				f.DeletedAt = &at
			}
		case "parent_id":
			if value == nil {
				f.ParentID = nil
			} else {
				id := value.(uint)
				f.ParentID = &id
			}
		case "size":
			f.Size = value.(int64)
		case "storage_path":
			f.StoragePath = value.(string)
		case "mime_type":
			f.MimeType = value.(string)
		}
	}
	r.files[fileID] = f
	return nil
}

func (r *fakeFileRepo) SetDeletedByIDs(_ context.Context, _ *gorm.DB, fileIDs []uint, deleted bool, deletedAt *time.Time) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for _, id := range fileIDs {
		f, ok := r.files[id]
		if !ok {
			continue
		}
		f.IsDeleted = deleted
		f.DeletedAt = deletedAt
		r.files[id] = f
	}
	return nil
}

func (r *fakeFileRepo) DeleteByID(_ context.Context, _ *gorm.DB, fileID uint) error {
	delete(r.files, fileID)
	return nil
}

func (r *fakeFileRepo) ListTrashedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) ([]models.File, error) {
	out := make([]models.File, 0)
	for _, f := range r.files {
		if f.IsDeleted && f.DeletedAt != nil && f.DeletedAt.Before(cutoff) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeVersionRepo struct {
	versions  map[uint][]models.FileVersion
	nextID    uint
	createErr error
}

func newFakeVersionRepo() *fakeVersionRepo {
	return &fakeVersionRepo{versions: map[uint][]models.FileVersion{}, nextID: 1}
}

func (r *fakeVersionRepo) Create(_ context.Context, _ *gorm.DB, version *models.FileVersion) error {
	if r.createErr != nil {
		return r.createErr
	}
	if version.ID == 0 {
		version.ID = r.nextID
		r.nextID++
	}
	r.versions[version.FileID] = append(r.versions[version.FileID], *version)
	return nil
}

func (r *fakeVersionRepo) MaxVersionNumber(_ context.Context, _ *gorm.DB, fileID uint) (int, error) {
	max := 0
	for _, v := range r.versions[fileID] {
		if v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (r *fakeVersionRepo) ListByFile(_ context.Context, _ *gorm.DB, fileID uint) ([]models.FileVersion, error) {
	out := append([]models.FileVersion(nil), r.versions[fileID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber > out[j].VersionNumber })
	return out, nil
}

func (r *fakeVersionRepo) GetByFileAndNumber(_ context.Context, _ *gorm.DB, fileID uint, versionNumber int) (models.FileVersion, error) {
	for _, v := range r.versions[fileID] {
		if v.VersionNumber == versionNumber {
			return v, nil
		}
	}
	return models.FileVersion{}, gorm.ErrRecordNotFound
}

func (r *fakeVersionRepo) DeleteByFile(_ context.Context, _ *gorm.DB, fileID uint) error {
	delete(r.versions, fileID)
	return nil
}

type fakeShareRepo struct {
	shares    map[uint]models.Share
	nextID    uint
	createErr error
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{shares: map[uint]models.Share{}, nextID: 1}
}

func (r *fakeShareRepo) Create(_ context.Context, _ *gorm.DB, share *models.Share) error {
	if r.createErr != nil {
		return r.createErr
	}
	if share.ID == 0 {
		share.ID = r.nextID
		r.nextID++
	}
	r.shares[share.ID] = *share
	return nil
}

func (r *fakeShareRepo) GetPrivateByFileAndEmail(_ context.Context, _ *gorm.DB, fileID uint, email string) (models.Share, error) {
	for _, s := range r.shares {
		if s.FileID == fileID && s.SharedWithEmail == email && s.ShareType == models.ShareTypePrivate {
			return s, nil
		}
	}
	return models.Share{}, gorm.ErrRecordNotFound
}

func (r *fakeShareRepo) GetByIDAndFile(_ context.Context, _ *gorm.DB, shareID uint, fileID uint) (models.Share, error) {
	s, ok := r.shares[shareID]
	if !ok || s.FileID != fileID {
		return models.Share{}, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *fakeShareRepo) GetByToken(_ context.Context, _ *gorm.DB, token string) (models.Share, error) {
	for _, s := range r.shares {
		if s.ShareType == models.ShareTypePublic && s.PublicToken != nil && *s.PublicToken == token {
			return s, nil
		}
	}
	return models.Share{}, gorm.ErrRecordNotFound
}

func (r *fakeShareRepo) ListSharedWith(_ context.Context, _ *gorm.DB, in repositories.ListSharesInput) ([]models.Share, int64, error) {
	out := make([]models.Share, 0)
	now := time.Now()
	for _, s := range r.shares {
		if s.SharedWithEmail != in.Email || s.ShareType != models.ShareTypePrivate {
			continue
		}
		if s.ExpiresAt != nil && s.ExpiresAt.Before(now) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeShareRepo) ListSharedBy(_ context.Context, _ *gorm.DB, in repositories.ListSharesInput) ([]models.Share, int64, error) {
	out := make([]models.Share, 0)
	for _, s := range r.shares {
		if s.OwnerID == in.OwnerID && s.ShareType == models.ShareTypePrivate {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeShareRepo) ListExpiredPublic(_ context.Context, _ *gorm.DB, now time.Time) ([]models.Share, error) {
	out := make([]models.Share, 0)
	for _, s := range r.shares {
		if s.ShareType == models.ShareTypePublic && s.ExpiresAt != nil && s.ExpiresAt.Before(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeShareRepo) DeleteByID(_ context.Context, _ *gorm.DB, shareID uint) error {
	delete(r.shares, shareID)
	return nil
}

func (r *fakeShareRepo) DeleteByFile(_ context.Context, _ *gorm.DB, fileID uint) error {
	for id, s := range r.shares {
		if s.FileID == fileID {
			delete(r.shares, id)
		}
	}
	return nil
}

func (r *fakeShareRepo) DeletePublicByFile(_ context.Context, _ *gorm.DB, fileID uint) error {
	for id, s := range r.shares {
		if s.FileID == fileID && s.ShareType == models.ShareTypePublic {
			delete(r.shares, id)
		}
	}
	return nil
}

type fakeQuotaRepo struct {
	quotas    map[uint]models.UserQuota
	nextID    uint
	createErr error
	getErr    error
}

func newFakeQuotaRepo() *fakeQuotaRepo {
	return &fakeQuotaRepo{quotas: map[uint]models.UserQuota{}, nextID: 1}
}

func (r *fakeQuotaRepo) GetByUser(_ context.Context, _ *gorm.DB, userID uint) (models.UserQuota, error) {
	if r.getErr != nil {
		return models.UserQuota{}, r.getErr
	}
	if q, ok := r.quotas[userID]; ok {
		return q, nil
	}
	return models.UserQuota{}, gorm.ErrRecordNotFound
}

func (r *fakeQuotaRepo) Create(_ context.Context, _ *gorm.DB, quota *models.UserQuota) error {
	if r.createErr != nil {
		return r.createErr
	}
	if quota.ID == 0 {
		quota.ID = r.nextID
		r.nextID++
	}
	r.quotas[quota.UserID] = *quota
	return nil
}

func (r *fakeQuotaRepo) AddUsage(_ context.Context, _ *gorm.DB, userID uint, bytes int64, files int64) error {
	q, ok := r.quotas[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.StorageUsed += bytes
	q.FileCount += files
	r.quotas[userID] = q
	return nil
}

func (r *fakeQuotaRepo) SubUsage(_ context.Context, _ *gorm.DB, userID uint, bytes int64, files int64) error {
	q, ok := r.quotas[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.StorageUsed -= bytes
	if q.StorageUsed < 0 {
		q.StorageUsed = 0
	}
	q.FileCount -= files
	if q.FileCount < 0 {
		q.FileCount = 0
	}
	r.quotas[userID] = q
	return nil
}

func (r *fakeQuotaRepo) UpdatePlan(_ context.Context, _ *gorm.DB, userID uint, planID string, storageLimit int64, fileCountLimit int64) error {
	q, ok := r.quotas[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.PlanID = planID
	q.StorageLimit = storageLimit
	q.FileCountLimit = fileCountLimit
	r.quotas[userID] = q
	return nil
}

type fakeBlobStore struct {
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, body io.Reader, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeBlobStore) SignedURL(_ context.Context, key string, _ string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

type fakeNotifier struct {
	events []Event
}

func (n *fakeNotifier) Notify(_ context.Context, _ uint, event Event) {
	n.events = append(n.events, event)
}

func (n *fakeNotifier) lastEventType() string {
	if len(n.events) == 0 {
		return ""
	}
	return n.events[len(n.events)-1].Type
}

type fakeBlacklist struct {
	tokens map[string]bool
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{tokens: map[string]bool{}}
}

func (b *fakeBlacklist) Add(_ context.Context, token string, _ time.Duration) error {
	b.tokens[token] = true
	return nil
}

func (b *fakeBlacklist) Contains(_ context.Context, token string) (bool, error) {
	return b.tokens[token], nil
}

// multipartFile adapts an in-memory payload to the multipart upload API.
type multipartFile struct {
	*bytes.Reader
}

func newMultipartFile(data []byte) *multipartFile {
	return &multipartFile{Reader: bytes.NewReader(data)}
}

func (f *multipartFile) Close() error { return nil }

func uploadHeader(name string, size int64, contentType string) *multipart.FileHeader {
	header := &multipart.FileHeader{Filename: name, Size: size, Header: textproto.MIMEHeader{}}
	if contentType != "" {
		header.Header.Set("Content-Type", contentType)
	}
	return header
}
