package anomaly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/kavach-ai/securenet/pkg/httputil"
)

// phishingContentSeed is one canonical example of phishing page text.
type phishingContentSeed struct {
	Text     string
	Category string
}

// seedPhishingContent are the canonical lure texts embedded at startup.
// Categories mirror the report-ingestion taxonomy.
var seedPhishingContent = []phishingContentSeed{
	{"Your account has been suspended. Verify your identity immediately to restore access.", "account_suspension"},
	{"We detected unusual sign-in activity on your account. Confirm your password now.", "credential_harvest"},
	{"Your payment could not be processed. Update your billing information to avoid interruption.", "payment_update"},
	{"Congratulations! You have been selected to receive a reward. Claim it before it expires.", "prize_lure"},
	{"Security alert: your mailbox storage is full. Sign in to keep receiving messages.", "mailbox_lure"},
	{"Your package could not be delivered. Pay the outstanding customs fee to release it.", "delivery_scam"},
	{"This document is protected. Enter your email password to view the shared file.", "document_lure"},
	{"Your tax refund is ready. Provide your bank details to receive the transfer.", "refund_scam"},
}

// ContentSimilarity indexes known phishing lure texts in an in-memory
// vector store and reports how closely a page's text matches them. It
// needs an embedding source (Ollama); when none is reachable the pattern
// sub-detector simply runs without the similarity boost.
type ContentSimilarity struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
	ready      bool
}

// NewContentSimilarity creates the index using Ollama embeddings at the
// given base URL.
func NewContentSimilarity(ollamaURL, model string) (*ContentSimilarity, error) {
	if model == "" {
		model = "nomic-embed-text"
	}
	db := chromem.NewDB()
	collection, err := db.CreateCollection("phishing_content", nil, newOllamaEmbeddingFunc(model, ollamaURL))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &ContentSimilarity{db: db, collection: collection}, nil
}

// LoadSeeds embeds the canonical lure texts. Requires the embedding
// service to be reachable; callers treat failure as "similarity disabled".
func (cs *ContentSimilarity) LoadSeeds(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	docs := make([]chromem.Document, len(seedPhishingContent))
	for i, seed := range seedPhishingContent {
		docs[i] = chromem.Document{
			ID:       fmt.Sprintf("seed_%d", i),
			Content:  seed.Text,
			Metadata: map[string]string{"category": seed.Category},
		}
	}
	// Single worker: embedding services choke on parallel cold requests.
	if err := cs.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("embed seeds: %w", err)
	}
	cs.ready = true
	log.Printf("[STARTUP] phishing content similarity index ready (%d seeds)", len(docs))
	return nil
}

// Ready reports whether the seed index was built.
func (cs *ContentSimilarity) Ready() bool {
	if cs == nil {
		return false
	}
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.ready
}

// BestMatch returns the highest similarity against the seed lures and its
// category.
func (cs *ContentSimilarity) BestMatch(ctx context.Context, text string) (float64, string, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if !cs.ready {
		return 0, "", fmt.Errorf("similarity index not loaded")
	}

	results, err := cs.collection.Query(ctx, strings.ToLower(text), 1, nil, nil)
	if err != nil {
		return 0, "", fmt.Errorf("query: %w", err)
	}
	if len(results) == 0 {
		return 0, "", nil
	}
	best := results[0]
	return float64(best.Similarity), best.Metadata["category"], nil
}

// newOllamaEmbeddingFunc builds a chromem embedding function against the
// Ollama /api/embeddings endpoint.
func newOllamaEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.MediumClient()

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody := map[string]string{"model": model, "prompt": text}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimRight(baseURL, "/")+"/api/embeddings", bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode != http.StatusOK {
			body, _ := httputil.ReadErrorBody(resp.Body)
			return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, body)
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
		return result.Embedding, nil
	}
}
