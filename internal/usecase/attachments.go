package usecase

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"JobsScanner/internal/domain"
)

// fetchAttachments downloads every link into dir with at most AttachmentWorkers in flight.
// Failed or timed out downloads are logged and left out of the result.
func (p *Pipeline) fetchAttachments(ctx context.Context, links []domain.LabeledLink, dir string) map[domain.LinkRole]domain.Attachment {
	out := make(map[domain.LinkRole]domain.Attachment, len(links))
	if p.attachments == nil || len(links) == 0 {
		return out
	}

	sem := semaphore.NewWeighted(int64(p.cfg.AttachmentWorkers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, link := range links {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			attCtx, cancel := context.WithTimeout(ctx, p.cfg.AttachmentTimeout)
			defer cancel()

			att, err := p.attachments.FetchAttachment(attCtx, link.URL, dir)
			if err != nil {
				result := attachmentResult(err)
				p.metrics.Attachment(result)
				p.logger.Warn("attachment skipped", "role", link.Role.String(), "url", link.URL, "result", result, "error", err)
				return
			}
			att.Role = link.Role
			p.metrics.Attachment("ok")

			mu.Lock()
			out[link.Role] = att
			mu.Unlock()
		}()
	}

	wg.Wait()
	return out
}

// shortenLinks runs sequentially; the shortener paces its own calls.
func (p *Pipeline) shortenLinks(ctx context.Context, links []domain.LabeledLink) map[domain.LinkRole]string {
	out := make(map[domain.LinkRole]string, len(links))
	for _, link := range links {
		if p.shortener == nil {
			out[link.Role] = link.URL
			continue
		}
		out[link.Role] = p.shortener.Shorten(ctx, link.URL)
	}
	return out
}

func attachmentResult(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrIntegrity):
		return "empty"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}
