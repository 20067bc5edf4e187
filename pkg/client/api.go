package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuthResponse struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CreateBoardRequest struct {
	Name      string        `json:"name"`
	Data      boarddoc.Data `json:"data"`
	Thumbnail *string       `json:"thumbnail,omitempty"`
	Tags      []string      `json:"tags,omitempty"`
}

// UpdateBoardRequest sends only the non-nil fields. An empty Thumbnail
// clears the stored one.
type UpdateBoardRequest struct {
	Name      *string        `json:"name,omitempty"`
	Data      *boarddoc.Data `json:"data,omitempty"`
	Thumbnail *string        `json:"thumbnail,omitempty"`
	Tags      *[]string      `json:"tags,omitempty"`
}

type ListOptions struct {
	Query string
	Tag   string
}

type FileRef struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type boardEnvelope struct {
	Board boarddoc.StoredBoard `json:"board"`
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	var out AuthResponse
	in := map[string]string{"email": email, "password": password}
	if name != "" {
		in["name"] = name
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Login keeps the returned token on success.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Logout ends the server session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}
	c.ClearToken()
	return nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ListBoards(ctx context.Context, opts ListOptions) ([]boarddoc.Metadata, error) {
	q := url.Values{}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Tag != "" {
		q.Set("tag", opts.Tag)
	}
	path := "/api/boards"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Boards []boarddoc.Metadata `json:"boards"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out.Boards == nil {
		out.Boards = []boarddoc.Metadata{}
	}
	return out.Boards, nil
}

// GetBoard returns the board with its data as stored. Use
// boarddoc.ToWorking to flatten it.
func (c *Client) GetBoard(ctx context.Context, id string) (*boarddoc.StoredBoard, error) {
	var out boardEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/boards/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Board, nil
}

func (c *Client) CreateBoard(ctx context.Context, in CreateBoardRequest) (*boarddoc.StoredBoard, error) {
	in.Data = in.Data.Normalize()
	var out boardEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/boards", in, &out); err != nil {
		return nil, err
	}
	return &out.Board, nil
}

func (c *Client) UpdateBoard(ctx context.Context, id string, in UpdateBoardRequest) (*boarddoc.StoredBoard, error) {
	var out boardEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "/api/boards/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out.Board, nil
}

func (c *Client) DeleteBoard(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/boards/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DuplicateBoard(ctx context.Context, id string) (*boarddoc.StoredBoard, error) {
	var out boardEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/boards/"+url.PathEscape(id)+"/duplicate", nil, &out); err != nil {
		return nil, err
	}
	return &out.Board, nil
}

// ExportBoard returns the single-board export file.
func (c *Client) ExportBoard(ctx context.Context, id string) ([]byte, error) {
	var out []byte
	err := c.doJSON(ctx, http.MethodGet, "/api/boards/"+url.PathEscape(id)+"/export", nil, &out)
	return out, err
}

// ExportAll returns a backup file with every board of the user.
func (c *Client) ExportAll(ctx context.Context) ([]byte, error) {
	var out []byte
	err := c.doJSON(ctx, http.MethodGet, "/api/export/boards", nil, &out)
	return out, err
}

// ImportFile uploads an export file for the server to parse.
func (c *Client) ImportFile(ctx context.Context, content []byte) ([]boarddoc.StoredBoard, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/import/boards", bytes.NewReader(content), "application/json")
	if err != nil {
		return nil, err
	}
	var out struct {
		Boards []boarddoc.StoredBoard `json:"boards"`
	}
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return out.Boards, nil
}

func (c *Client) UploadFile(ctx context.Context, boardID, filename string, r io.Reader) (*FileRef, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/boards/"+url.PathEscape(boardID)+"/files", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	var out struct {
		File FileRef `json:"file"`
	}
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out.File, nil
}

// DownloadFile returns the attachment bytes and content type.
func (c *Client) DownloadFile(ctx context.Context, boardID, fileID string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/boards/"+url.PathEscape(boardID)+"/files/"+url.PathEscape(fileID), nil, "")
	if err != nil {
		return nil, "", err
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return nil, "", decodeAPIError(res)
	}
	b, err := io.ReadAll(res.Body)
	return b, res.Header.Get("Content-Type"), err
}
