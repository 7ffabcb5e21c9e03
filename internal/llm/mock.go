package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// MockClient is a scripted Client for tests. Each call pops the next
// response; when the script is exhausted Respond is used if set.
type MockClient struct {
	Respond   func(ctx context.Context, req Request) (string, error)
	responses []mockResponse
	calls     []Request
	mu        sync.Mutex
}

type mockResponse struct {
	err  error
	body string
}

// NewMockClient creates an empty mock.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Reply queues a raw response body.
func (m *MockClient) Reply(body string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{body: body})
	return m
}

// Fail queues an error.
func (m *MockClient) Fail(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResponse{err: err})
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	if len(m.responses) > 0 {
		next := m.responses[0]
		m.responses = m.responses[1:]
		m.mu.Unlock()
		return next.body, next.err
	}
	respond := m.Respond
	m.mu.Unlock()

	if respond == nil {
		return "", fmt.Errorf("mock client: no response scripted")
	}
	return respond(ctx, req)
}

// Calls returns a copy of every request received.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// EchoCategory builds a Respond func that classifies every transaction in the
// request into category with the given confidence.
func EchoCategory(category string, mapping model.TaxMapping, confidence float64) func(context.Context, Request) (string, error) {
	return func(_ context.Context, req Request) (string, error) {
		var batch []struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal([]byte(req.User), &batch); err != nil {
			return "", err
		}

		env := classificationEnvelope{}
		for _, txn := range batch {
			env.Classifications = append(env.Classifications, model.ClassificationSuggestion{
				TransactionID:   txn.ID,
				CategoryName:    category,
				TaxMapping:      mapping,
				IsTaxDeductible: mapping != model.TaxNone,
				Reasoning:       "mock",
				ConfidenceScore: confidence,
			})
		}
		data, err := json.Marshal(env)
		return string(data), err
	}
}
