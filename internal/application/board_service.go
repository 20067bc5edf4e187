package application

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	repo "github.com/maplify-tech/whiteboard/internal/domain/repository"
	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
	"github.com/maplify-tech/whiteboard/pkg/boardfile"
	"github.com/maplify-tech/whiteboard/pkg/validation"
)

const (
	MaxNameLength    = 255
	copySuffix       = " (Copy)"
	untitledName     = "Untitled Board"
	searchResultSize = 100
)

var (
	boardsCreated  = expvar.NewInt("boards_created")
	boardsUpdated  = expvar.NewInt("boards_updated")
	boardsDeleted  = expvar.NewInt("boards_deleted")
	boardsImported = expvar.NewInt("boards_imported")
	filesUploaded  = expvar.NewInt("files_uploaded")
	indexFailures  = expvar.NewInt("board_index_failures")
)

type CreateBoardInput struct {
	Name      string         `json:"name" binding:"required,boardname"`
	Data      *boarddoc.Data `json:"data" binding:"required"`
	Thumbnail *string        `json:"thumbnail"`
	Tags      []string       `json:"tags"`
}

// UpdateBoardInput is a partial update. A nil field is left unchanged; an
// empty Thumbnail clears it.
type UpdateBoardInput struct {
	Name      *string        `json:"name"`
	Data      *boarddoc.Data `json:"data"`
	Thumbnail *string        `json:"thumbnail"`
	Tags      *[]string      `json:"tags"`
}

type ListFilter struct {
	Query string
	Tag   string
}

// FileRef describes a stored attachment. ID is the object name under the board.
type FileRef struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type BoardService struct {
	Repo   repo.BoardRepository
	Files  repo.ObjectStore
	Index  repo.BoardIndex
	Users  repo.UserRepository
	Notify *Notifier
	Logger *logrus.Logger

	MaxFileBytes int64
	Now          func() time.Time
}

func NewBoardService(boards repo.BoardRepository, files repo.ObjectStore, index repo.BoardIndex, users repo.UserRepository, notify *Notifier, logger *logrus.Logger) *BoardService {
	return &BoardService{
		Repo:         boards,
		Files:        files,
		Index:        index,
		Users:        users,
		Notify:       notify,
		Logger:       logger,
		MaxFileBytes: 25 << 20,
		Now:          time.Now,
	}
}

// List returns the user's boards without data, most recently updated first.
// A query goes through the search index when one is configured and falls
// back to a name/tag substring match when it is not or when it fails.
func (s *BoardService) List(ctx context.Context, userID string, f ListFilter) ([]*entity.Board, error) {
	filter := entity.BoardFilter{Query: strings.TrimSpace(f.Query), Tag: strings.TrimSpace(f.Tag)}
	if filter.Query != "" && s.Index != nil {
		ids, err := s.Index.Search(ctx, userID, filter.Query, searchResultSize)
		if err != nil {
			s.warn(err, "board search failed; falling back to database", logrus.Fields{"user_id": userID})
		} else {
			filter.IDs = ids
			filter.Query = ""
		}
	}
	boards, err := s.Repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (s *BoardService) Get(ctx context.Context, userID, id string) (*entity.Board, error) {
	if !validID(id) {
		return nil, ErrBoardNotFound
	}
	b, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, mapRepoErr(err, "get board")
	}
	return b, nil
}

func (s *BoardService) Create(ctx context.Context, userID string, in CreateBoardInput) (*entity.Board, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if err := checkName(in.Name); err != nil {
		return nil, err
	}
	b := &entity.Board{
		UserID:    userID,
		Name:      in.Name,
		Data:      in.Data.Normalize(),
		Thumbnail: thumbnailValue(in.Thumbnail),
		Tags:      normalizeTags(in.Tags),
	}
	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, mapRepoErr(err, "create board")
	}
	boardsCreated.Add(1)
	s.index(ctx, b)
	return b, nil
}

func (s *BoardService) Update(ctx context.Context, userID, id string, in UpdateBoardInput) (*entity.Board, error) {
	if in.Name != nil {
		if err := checkName(*in.Name); err != nil {
			return nil, err
		}
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, ErrBoardNotFound
	}

	patch := entity.BoardPatch{Name: in.Name, Thumbnail: in.Thumbnail}
	if in.Data != nil {
		d := in.Data.Normalize()
		patch.Data = &d
	}
	if in.Tags != nil {
		tags := normalizeTags(*in.Tags)
		patch.Tags = &tags
	}

	b, err := s.Repo.Update(ctx, userID, id, patch)
	if err != nil {
		return nil, mapRepoErr(err, "update board")
	}
	boardsUpdated.Add(1)
	s.index(ctx, b)
	return b, nil
}

func (s *BoardService) Delete(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return ErrBoardNotFound
	}
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return mapRepoErr(err, "delete board")
	}
	boardsDeleted.Add(1)
	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			indexFailures.Add(1)
			s.warn(err, "remove board from index failed", logrus.Fields{"board_id": id})
		}
	}
	return nil
}

// Duplicate copies data, thumbnail and tags into a new board named
// "<name> (Copy)", truncating the original name so the result stays valid.
func (s *BoardService) Duplicate(ctx context.Context, userID, id string) (*entity.Board, error) {
	src, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	b := &entity.Board{
		UserID:    userID,
		Name:      CopyName(src.Name),
		Data:      src.Data,
		Thumbnail: src.Thumbnail,
		Tags:      append([]string{}, src.Tags...),
	}
	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, mapRepoErr(err, "duplicate board")
	}
	boardsCreated.Add(1)
	s.index(ctx, b)
	return b, nil
}

// CopyName appends the copy suffix, trimming name by runes when needed.
func CopyName(name string) string {
	limit := MaxNameLength - utf8.RuneCountInString(copySuffix)
	if utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	return name + copySuffix
}

// Import creates every board found in an export file under userID. Ids and
// timestamps in the file are ignored.
func (s *BoardService) Import(ctx context.Context, userID string, content []byte) ([]*entity.Board, error) {
	res, err := boardfile.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	docs := res.Boards()

	out := make([]*entity.Board, 0, len(docs))
	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		b := &entity.Board{
			UserID: userID,
			Name:   importName(doc.Name),
			Data:   boarddoc.ToWire(doc),
			Tags:   normalizeTags(doc.Tags),
		}
		if err := s.Repo.Create(ctx, b); err != nil {
			return out, mapRepoErr(err, "import board")
		}
		boardsImported.Add(1)
		s.index(ctx, b)
		out = append(out, b)
		names = append(names, b.Name)
	}

	if s.Notify != nil && s.Users != nil {
		if u, err := s.Users.GetByID(ctx, userID); err == nil {
			s.Notify.ImportSummary(ctx, u, names)
		}
	}
	return out, nil
}

// Export returns the single-board export envelope for one board.
func (s *BoardService) Export(ctx context.Context, userID, id string) ([]byte, *entity.Board, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	content, err := boardfile.EncodeBoard(b.Document())
	if err != nil {
		return nil, nil, fmt.Errorf("encode board: %w", err)
	}
	return content, b, nil
}

// ExportAll returns a multi-board backup of every board the user owns.
func (s *BoardService) ExportAll(ctx context.Context, userID string) ([]byte, error) {
	list, err := s.Repo.List(ctx, userID, entity.BoardFilter{})
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	docs := make([]boarddoc.Document, 0, len(list))
	for _, m := range list {
		b, err := s.Repo.Get(ctx, userID, m.ID)
		if errors.Is(err, repo.ErrNotFound) {
			// deleted between list and get
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get board: %w", err)
		}
		docs = append(docs, b.Document())
	}
	content, err := boardfile.EncodeBoards(docs, s.Now())
	if err != nil {
		return nil, fmt.Errorf("encode boards: %w", err)
	}
	return content, nil
}

// UploadFile stores an attachment under boards/<userID>/<boardID>/.
func (s *BoardService) UploadFile(ctx context.Context, userID, boardID, filename, contentType string, size int64, r io.Reader) (*FileRef, error) {
	if s.Files == nil {
		return nil, ErrStorageUnavailable
	}
	if size <= 0 {
		return nil, invalid("file", "is required")
	}
	if s.MaxFileBytes > 0 && size > s.MaxFileBytes {
		return nil, invalid("file", fmt.Sprintf("must be at most %d bytes", s.MaxFileBytes))
	}
	if _, err := s.Get(ctx, userID, boardID); err != nil {
		return nil, err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	fileID := uuid.NewString() + fileExt(filename)
	key := objectKey(userID, boardID, fileID)
	if err := s.Files.Put(ctx, key, contentType, size, r); err != nil {
		s.warn(err, "object put failed", logrus.Fields{"board_id": boardID, "key": key})
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	filesUploaded.Add(1)
	return &FileRef{ID: fileID, Key: key, ContentType: contentType, Size: size}, nil
}

// OpenFile returns an attachment of a board the user owns. The caller closes Body.
func (s *BoardService) OpenFile(ctx context.Context, userID, boardID, fileID string) (*repo.Object, error) {
	if s.Files == nil {
		return nil, ErrStorageUnavailable
	}
	if !fileIDPattern.MatchString(fileID) {
		return nil, ErrFileNotFound
	}
	if _, err := s.Get(ctx, userID, boardID); err != nil {
		return nil, err
	}
	obj, err := s.Files.Get(ctx, objectKey(userID, boardID, fileID))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return obj, nil
}

func (s *BoardService) index(ctx context.Context, b *entity.Board) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, b); err != nil {
		indexFailures.Add(1)
		s.warn(err, "index board failed", logrus.Fields{"board_id": b.ID})
	}
}

func (s *BoardService) warn(err error, msg string, fields logrus.Fields) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithFields(fields).Warn(msg)
	}
}

var (
	fileIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}(\.[a-z0-9]{1,10})?$`)
	extPattern    = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

func objectKey(userID, boardID, fileID string) string {
	return path.Join("boards", userID, boardID, fileID)
}

func fileExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validate(v any) error {
	if err := validation.Validate(v); err != nil {
		return &ValidationError{Fields: validation.ToDetails(err)}
	}
	return nil
}

func checkName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxNameLength {
		return invalid("name", "must be between 1 and 255 characters")
	}
	return nil
}

func importName(name string) string {
	if strings.TrimSpace(name) == "" {
		return untitledName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return string([]rune(name)[:MaxNameLength])
	}
	return name
}

// thumbnailValue maps an empty thumbnail to "none".
func thumbnailValue(t *string) *string {
	if t == nil || *t == "" {
		return nil
	}
	v := *t
	return &v
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func mapRepoErr(err error, op string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrBoardNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
