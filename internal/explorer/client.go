// Package explorer implements the ledger client for the chain-indexer HTTP APIs.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/sigmapool/stats-backend/internal/clock"
	"github.com/sigmapool/stats-backend/internal/model"
	"github.com/sigmapool/stats-backend/pkg/retry"
)

// ErrNotFound reports that neither source knows the requested item. Expected
// for pruned or foreign data; callers skip, never fail.
var ErrNotFound = errors.New("explorer: not found")

const (
	defaultPageSize   = 20
	defaultPageRPS    = 2
	defaultErrorDelay = 2 * time.Second
	defaultErrorSlack = 5
	defaultAttempts   = 3
	defaultBaseDelay  = time.Second
)

type (
	// Metrics records upstream call outcomes.
	Metrics interface {
		Observe(operation, source string, err error, started time.Time)
	}
)

// Config carries the knobs of the ledger client. Zero values fall back to the
// upstream's documented limits.
type Config struct {
	// NodeBaseURL is the local node API, tried first for detail lookups.
	NodeBaseURL string
	// ExplorerBaseURL is the public chain indexer, used for pagination and as
	// the detail fallback.
	ExplorerBaseURL string
	// PageSize per transaction-list request.
	PageSize int
	// PageRPS caps list-page requests per second.
	PageRPS int
	// ErrorDelay is the longer wait applied after a failed page fetch.
	ErrorDelay time.Duration
	// ErrorSlack is how many pages past the expected count the walk tolerates
	// before giving up.
	ErrorSlack int
	// MaxAttempts bounds retries of the balance and height probes.
	MaxAttempts uint64
}

// Client fetches a wallet's transaction history, balances and transaction
// detail from the chain indexer. Page walks are best-effort harvests: a failed
// page is skipped after a delay rather than retried, and the walk self-bounds
// instead of looping forever.
type Client struct {
	httpClient   *http.Client
	nodeBase     string
	explorerBase string
	pageSize     int
	pageLimiter  ratelimit.Limiter
	errorDelay   time.Duration
	errorSlack   int
	maxAttempts  uint64
	logger       *zap.Logger
	metrics      Metrics
	sleep        func(context.Context, time.Duration) error

	// preferExplorer flips once the node source proves unreachable, so later
	// detail lookups stop paying the node timeout first.
	preferExplorer atomic.Bool
}

// NewClient builds a ledger client.
func NewClient(httpClient *http.Client, cfg Config, m Metrics, logger *zap.Logger) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	if cfg.ExplorerBaseURL == "" {
		return nil, errors.New("explorer base url is required")
	}
	if m == nil {
		return nil, errors.New("metrics is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageRPS <= 0 {
		cfg.PageRPS = defaultPageRPS
	}
	if cfg.ErrorDelay <= 0 {
		cfg.ErrorDelay = defaultErrorDelay
	}
	if cfg.ErrorSlack <= 0 {
		cfg.ErrorSlack = defaultErrorSlack
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultAttempts
	}

	c := &Client{
		httpClient:   httpClient,
		nodeBase:     cfg.NodeBaseURL,
		explorerBase: cfg.ExplorerBaseURL,
		pageSize:     cfg.PageSize,
		pageLimiter:  ratelimit.New(cfg.PageRPS),
		errorDelay:   cfg.ErrorDelay,
		errorSlack:   cfg.ErrorSlack,
		maxAttempts:  cfg.MaxAttempts,
		logger:       logger,
		metrics:      m,
		sleep:        clock.SleepWithContext,
	}
	if c.nodeBase == "" {
		c.preferExplorer.Store(true)
	}
	return c, nil
}

type transactionPage struct {
	Items []transactionPayload `json:"items"`
	Total int                  `json:"total"`
}

type transactionPayload struct {
	ID              string         `json:"id"`
	InclusionHeight uint64         `json:"inclusionHeight"`
	Timestamp       int64          `json:"timestamp"`
	Inputs          []entryPayload `json:"inputs"`
	Outputs         []entryPayload `json:"outputs"`
}

type entryPayload struct {
	Address string `json:"address"`
	Value   int64  `json:"value"`
}

type balancePayload struct {
	NanoErgs int64 `json:"nanoErgs"`
}

type infoPayload struct {
	Height uint64 `json:"height"`
}

// AddressTransactions fetches one page of an address's transaction history
// from the explorer.
func (c *Client) AddressTransactions(ctx context.Context, address string, offset, limit int) (refs []model.TransactionRef, total int, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("address_transactions", "explorer", err, started)
	}()

	url := fmt.Sprintf("%s/addresses/%s/transactions?offset=%d&limit=%d", c.explorerBase, address, offset, limit)
	var page transactionPage
	if err = c.getJSON(ctx, url, &page); err != nil {
		return nil, 0, fmt.Errorf("fetch transactions page offset=%d: %w", offset, err)
	}

	refs = make([]model.TransactionRef, 0, len(page.Items))
	for _, item := range page.Items {
		refs = append(refs, model.TransactionRef{
			ID:              item.ID,
			InclusionHeight: item.InclusionHeight,
			TimestampMillis: item.Timestamp,
		})
	}
	return refs, page.Total, nil
}

// FetchAllTransactions walks the full paginated history of address, up to
// maxCount entries. Page failures are skipped after a delay; the walk aborts
// once it has overshot the expected page count by the configured slack.
// Returns the harvested refs together with the number of failed pages; the
// error is non-nil only when ctx ends the walk.
func (c *Client) FetchAllTransactions(ctx context.Context, address string, maxCount int) ([]model.TransactionRef, int, error) {
	if maxCount <= 0 {
		return nil, 0, nil
	}

	var (
		refs       []model.TransactionRef
		page       int
		pageErrors int
		total      = -1 // unknown until the first successful page
	)

	expectedPages := func() int {
		known := maxCount
		if total >= 0 && total < known {
			known = total
		}
		return (known + c.pageSize - 1) / c.pageSize
	}

	for len(refs) < maxCount {
		if err := ctx.Err(); err != nil {
			return nil, pageErrors, err
		}
		if page >= expectedPages()+c.errorSlack {
			c.logger.Warn("aborting transaction walk, page budget exhausted",
				zap.String("address", address),
				zap.Int("harvested", len(refs)),
				zap.Int("page_errors", pageErrors))
			break
		}

		c.pageLimiter.Take()

		items, pageTotal, err := c.AddressTransactions(ctx, address, page*c.pageSize, c.pageSize)
		if err != nil {
			pageErrors++
			c.logger.Warn("transaction page fetch failed, skipping page",
				zap.String("address", address),
				zap.Int("page", page),
				zap.Error(err))
			if serr := c.sleep(ctx, c.errorDelay); serr != nil {
				return nil, pageErrors, serr
			}
			page++
			continue
		}

		if total < 0 {
			total = pageTotal
			c.logger.Info("starting transaction walk",
				zap.String("address", address),
				zap.Int("total_available", total),
				zap.Int("max", maxCount))
		}
		if len(items) == 0 {
			break
		}

		refs = append(refs, items...)
		page++

		if total >= 0 && len(refs) >= total {
			break
		}
	}

	if len(refs) > maxCount {
		refs = refs[:maxCount]
	}
	c.logger.Info("transaction walk complete",
		zap.String("address", address),
		zap.Int("harvested", len(refs)),
		zap.Int("page_errors", pageErrors))
	return refs, pageErrors, nil
}

// TransactionByID fetches full transaction detail, trying the node and the
// explorer in preference order. A 404 from every source yields ErrNotFound.
func (c *Client) TransactionByID(ctx context.Context, txID string) (model.Transaction, error) {
	var lastErr error

	for _, source := range c.detailSources() {
		started := time.Now()
		url := fmt.Sprintf("%s/transactions/%s", source.base, txID)

		var payload transactionPayload
		err := c.getJSON(ctx, url, &payload)
		switch {
		case err == nil:
			c.metrics.Observe("transaction_by_id", source.name, nil, started)
			return toTransaction(payload), nil
		case errors.Is(err, errStatusNotFound):
			// Expected for pruned or unknown transactions; not an error.
			c.metrics.Observe("transaction_by_id", source.name, nil, started)
			lastErr = ErrNotFound
		case ctx.Err() != nil:
			return model.Transaction{}, ctx.Err()
		default:
			c.metrics.Observe("transaction_by_id", source.name, err, started)
			if source.name == "node" && c.preferExplorer.CompareAndSwap(false, true) {
				c.logger.Warn("node source failing, preferring explorer for detail lookups", zap.Error(err))
			}
			lastErr = fmt.Errorf("fetch transaction %s from %s: %w", txID, source.name, err)
		}
	}

	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return model.Transaction{}, lastErr
}

// Balance returns the confirmed balance of address in base units.
func (c *Client) Balance(ctx context.Context, address string) (nano int64, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("balance", "explorer", err, started)
	}()

	url := fmt.Sprintf("%s/addresses/%s/balance/confirmed", c.explorerBase, address)
	var payload balancePayload
	err = retry.Do(ctx, c.maxAttempts, defaultBaseDelay, func() error {
		return c.getJSON(ctx, url, &payload)
	})
	if err != nil {
		return 0, fmt.Errorf("fetch balance for %s: %w", address, err)
	}
	return payload.NanoErgs, nil
}

// NetworkHeight returns the indexer's view of the current chain height.
func (c *Client) NetworkHeight(ctx context.Context) (height uint64, err error) {
	started := time.Now()
	defer func() {
		c.metrics.Observe("network_height", "explorer", err, started)
	}()

	var payload infoPayload
	err = retry.Do(ctx, c.maxAttempts, defaultBaseDelay, func() error {
		return c.getJSON(ctx, c.explorerBase+"/info", &payload)
	})
	if err != nil {
		return 0, fmt.Errorf("fetch network height: %w", err)
	}
	return payload.Height, nil
}

type detailSource struct {
	name string
	base string
}

func (c *Client) detailSources() []detailSource {
	node := detailSource{name: "node", base: c.nodeBase}
	expl := detailSource{name: "explorer", base: c.explorerBase}
	if c.nodeBase == "" {
		return []detailSource{expl}
	}
	if c.preferExplorer.Load() {
		return []detailSource{expl, node}
	}
	return []detailSource{node, expl}
}

var errStatusNotFound = errors.New("http status 404")

func (c *Client) getJSON(ctx context.Context, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errStatusNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("http status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toTransaction(p transactionPayload) model.Transaction {
	tx := model.Transaction{
		ID:              p.ID,
		InclusionHeight: p.InclusionHeight,
		TimestampMillis: p.Timestamp,
		Inputs:          make([]model.TransactionEntry, 0, len(p.Inputs)),
		Outputs:         make([]model.TransactionEntry, 0, len(p.Outputs)),
	}
	for _, in := range p.Inputs {
		tx.Inputs = append(tx.Inputs, model.TransactionEntry{Address: in.Address, Value: in.Value})
	}
	for _, out := range p.Outputs {
		tx.Outputs = append(tx.Outputs, model.TransactionEntry{Address: out.Address, Value: out.Value})
	}
	return tx
}
