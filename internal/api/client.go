// Package api talks to the relay's REST endpoints: login, signup,
// password reset, uploads and name changes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for any non-2xx response other than 401.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: unexpected status %d: %s", e.Code, e.Body)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	UserID   string `json:"userId"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"Email": email, "PW": password}

	var resp LoginResponse
	if err := c.postJSON(ctx, "/api/users/login", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("api: login response has no token")
	}
	return &resp, nil
}

func (c *Client) Signup(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.postJSON(ctx, "/api/users/signup", "", body, nil)
}

// RequestPasswordReset never reveals whether the email exists; the relay
// answers the same either way.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.postJSON(ctx, "/api/users/request-reset", "", map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	body := map[string]string{"token": resetToken, "newPassword": newPassword}
	return c.postJSON(ctx, "/api/users/reset-password", "", body, nil)
}

func (c *Client) UpdateName(ctx context.Context, token, name string) error {
	return c.postJSON(ctx, "/api/users/update-name", token, map[string]string{"name": name}, nil)
}

// UploadAvatar returns the stored avatar URL.
func (c *Client) UploadAvatar(ctx context.Context, token, filename string, r io.Reader) (string, error) {
	var resp struct {
		Avatar string `json:"avatar"`
	}
	if err := c.upload(ctx, "/upload-avatar", token, "avatar", filename, r, nil, &resp); err != nil {
		return "", err
	}
	if resp.Avatar == "" {
		return "", fmt.Errorf("api: avatar upload returned no url")
	}
	return resp.Avatar, nil
}

func (c *Client) UploadRoomBackground(ctx context.Context, token, roomID, filename string, r io.Reader) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	fields := map[string]string{"roomId": roomID}
	if err := c.upload(ctx, "/upload-room-bg", token, "background", filename, r, fields, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("api: room background upload returned no url")
	}
	return resp.URL, nil
}

func (c *Client) UploadMessageImage(ctx context.Context, token, roomID, filename string, r io.Reader) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	fields := map[string]string{"roomId": roomID}
	if err := c.upload(ctx, "/upload-image", token, "image", filename, r, fields, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("api: image upload returned no url")
	}
	return resp.URL, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("api: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("api: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) upload(ctx context.Context, path, token, field, filename string, r io.Reader, fields map[string]string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("api: writing field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("api: creating form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("api: reading upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("api: closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("api: building request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decoding response: %w", err)
	}
	return nil
}
