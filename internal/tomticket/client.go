package tomticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MerlinD690/dashsac/internal/types"
)

// APIError is a TomTicket-level failure: non-2xx status or success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tomticket api error (status %d): %s", e.Status, e.Message)
}

// ErrNetwork wraps transport-level failures so callers can distinguish them
// from API rejections.
var ErrNetwork = errors.New("tomticket network error")

// Client fetches the current set of active chats from the TomTicket API,
// handling pagination and the 3 req/s rate limit.
type Client struct {
	baseURL         string
	token           string
	httpClient      *http.Client
	pageConcurrency int
	batchDelay      time.Duration
	situationFilter []int // empty = operator-presence filter only
	logger          zerolog.Logger
}

// Options configures a Client
type Options struct {
	BaseURL         string
	Token           string
	PageConcurrency int           // pages fetched in parallel per batch
	BatchDelay      time.Duration // pause between batches
	PageTimeout     time.Duration // per-request timeout
	SituationFilter []int         // legacy filter, kept behind config
}

// NewClient creates a TomTicket client
func NewClient(opts Options, logger zerolog.Logger) *Client {
	if opts.PageConcurrency < 1 {
		opts.PageConcurrency = 3
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = 1100 * time.Millisecond
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 10 * time.Second
	}

	return &Client{
		baseURL:         opts.BaseURL,
		token:           opts.Token,
		httpClient:      &http.Client{Timeout: opts.PageTimeout},
		pageConcurrency: opts.PageConcurrency,
		batchDelay:      opts.BatchDelay,
		situationFilter: opts.SituationFilter,
		logger:          logger.With().Str("component", "tomticket").Logger(),
	}
}

// chatPage mirrors the TomTicket chat-list response
type chatPage struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       []chatEntry `json:"data"`
	Pagination pagination  `json:"pagination"`
}

type chatEntry struct {
	ID        string    `json:"id"`
	Situation int       `json:"situation"`
	Operator  *operator `json:"operator"`
}

type operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

// FetchActiveChats retrieves every page of the chat list and returns the
// chats currently assigned to an operator.
//
// A failed first page aborts the whole fetch with no partial data: without
// its pagination metadata any result would be silently incomplete. Failures
// on later pages only drop that page's chats (logged), so one flaky page
// does not discard an otherwise complete sync.
func (c *Client) FetchActiveChats(ctx context.Context) ([]types.TicketSnapshot, error) {
	first, err := c.fetchPage(ctx, 1)
	if err != nil {
		return nil, err
	}

	lastPage := first.Pagination.LastPage
	if lastPage < 1 {
		lastPage = 1
	}

	pages := make(map[int][]chatEntry, lastPage)
	pages[1] = first.Data

	// Remaining pages in batches of pageConcurrency, with an inter-batch
	// delay to stay under the API's 3 req/s limit.
	for batchStart := 2; batchStart <= lastPage; batchStart += c.pageConcurrency {
		batchEnd := batchStart + c.pageConcurrency - 1
		if batchEnd > lastPage {
			batchEnd = lastPage
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for page := batchStart; page <= batchEnd; page++ {
			wg.Add(1)
			go func(page int) {
				defer wg.Done()
				result, err := c.fetchPage(ctx, page)
				if err != nil {
					c.logger.Warn().Err(err).Int("page", page).Msg("page fetch failed, dropping its chats")
					return
				}
				mu.Lock()
				pages[page] = result.Data
				mu.Unlock()
			}(page)
		}
		wg.Wait()

		if batchEnd < lastPage {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
			case <-time.After(c.batchDelay):
			}
		}
	}

	// Concatenate in page order for deterministic output
	pageNums := make([]int, 0, len(pages))
	for num := range pages {
		pageNums = append(pageNums, num)
	}
	sort.Ints(pageNums)

	var chats []types.TicketSnapshot
	for _, num := range pageNums {
		for _, entry := range pages[num] {
			if !c.isActive(entry) {
				continue
			}
			snapshot := types.TicketSnapshot{
				ID:        entry.ID,
				Situation: entry.Situation,
			}
			if entry.Operator != nil {
				snapshot.OperatorName = entry.Operator.Name
			}
			chats = append(chats, snapshot)
		}
	}

	c.logger.Debug().
		Int("pages", lastPage).
		Int("active_chats", len(chats)).
		Msg("chat list fetched")

	return chats, nil
}

// isActive reports whether a chat counts as an active assignment. The
// operator-presence check is the primary policy; the situation filter is a
// legacy alternative enabled via TOMTICKET_SITUATION_FILTER.
func (c *Client) isActive(entry chatEntry) bool {
	if entry.Operator == nil || entry.Operator.Name == "" {
		return false
	}
	if len(c.situationFilter) == 0 {
		return true
	}
	for _, code := range c.situationFilter {
		if entry.Situation == code {
			return true
		}
	}
	return false
}

func (c *Client) fetchPage(ctx context.Context, page int) (*chatPage, error) {
	url := fmt.Sprintf("%s/chat-list?page=%d", c.baseURL, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var result chatPage
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding page %d: %v", ErrNetwork, page, err)
	}

	if !result.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: result.Message}
	}

	return &result, nil
}
