package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf16"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/ports"
)

// captionLimit is the Bot API limit for document captions, in UTF-16 code units.
const captionLimit = 1024

// Config wires the Bot API endpoint and destination.
type Config struct {
	APIURL   string
	BotToken string
	ChatID   string
	Timeout  time.Duration
}

// Notifier sends listings to a Telegram chat via bot API.
type Notifier struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg Config) *Notifier {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.telegram.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Notifier{
		apiURL:   strings.TrimSuffix(cfg.APIURL, "/"),
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Notify posts msg as a document with caption when it carries an attachment, else as text.
// Captions over the Bot API limit are sent as a text message followed by the bare document.
func (n *Notifier) Notify(ctx context.Context, msg domain.Message) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("%w: telegram notifier misconfigured", domain.ErrDelivery)
	}

	if !msg.HasAttachment() {
		return n.sendMessage(ctx, msg.Text)
	}

	if captionLength(msg.Text) > captionLimit {
		if err := n.sendMessage(ctx, msg.Text); err != nil {
			return err
		}
		return n.sendDocument(ctx, msg.AttachmentPath, "")
	}
	return n.sendDocument(ctx, msg.AttachmentPath, msg.Text)
}

func (n *Notifier) sendMessage(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: new request: %v", domain.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return n.do(req)
}

func (n *Notifier) sendDocument(ctx context.Context, path, caption string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open document: %v", domain.ErrDelivery, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", n.chatID); err != nil {
		return fmt.Errorf("%w: write chat_id: %v", domain.ErrDelivery, err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("%w: write caption: %v", domain.ErrDelivery, err)
		}
	}
	part, err := writer.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("%w: create document part: %v", domain.ErrDelivery, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("%w: copy document: %v", domain.ErrDelivery, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: close multipart: %v", domain.ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint("sendDocument"), &body)
	if err != nil {
		return fmt.Errorf("%w: new request: %v", domain.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return n.do(req)
}

func (n *Notifier) do(req *http.Request) error {
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", domain.ErrDelivery, err)
	}
	defer resp.Body.Close()

	var payload apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode != http.StatusOK || decodeErr != nil || !payload.OK {
		description := payload.Description
		if description == "" {
			description = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("%w: telegram error %s: %s", domain.ErrDelivery, resp.Status, description)
	}

	return nil
}

func (n *Notifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.apiURL, n.botToken, method)
}

// captionLength measures text the way the Bot API does, in UTF-16 code units.
func captionLength(text string) int {
	return len(utf16.Encode([]rune(text)))
}
