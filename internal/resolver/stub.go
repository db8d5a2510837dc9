package resolver

import (
	"context"
	"fmt"
	"sync"
)

// StubEngine is a minimal in-memory Engine used by unit tests and as a
// safe default before a production engine is wired. It records every call
// it receives so tests can assert on dispatch behavior without a real
// resolver or cgo dependency.
type StubEngine struct {
	mu sync.Mutex

	initialized     bool
	activeConfigID  int64
	defaultConfigID int64

	AddRecordCalls        []StubCall
	DeleteRecordCalls     []StubCall
	ReevaluateRecordCalls []StubCall

	// InfoResponse is returned by every *WithInfo call unless overridden.
	InfoResponse string

	// FailNext, if set, is returned (and cleared) by the next call to any
	// add/delete/reevaluate method — used to simulate a one-off resolver
	// exception in dispatcher tests.
	FailNext error
}

// StubCall records one invocation against the stub engine.
type StubCall struct {
	DataSource string
	RecordID   string
	JSONData   string
}

// NewStubEngine returns a stub already positioned at configuration ID 1.
func NewStubEngine() *StubEngine {
	return &StubEngine{activeConfigID: 1, defaultConfigID: 1}
}

func (s *StubEngine) Init(_ context.Context, _ string, _ string, _ bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *StubEngine) takeFailure() error {
	err := s.FailNext
	s.FailNext = nil
	return err
}

func (s *StubEngine) AddRecord(_ context.Context, dataSource, recordID, jsonData string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized(fmt.Errorf("stub engine not initialized"))
	}
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.AddRecordCalls = append(s.AddRecordCalls, StubCall{dataSource, recordID, jsonData})
	return nil
}

func (s *StubEngine) AddRecordWithInfo(ctx context.Context, dataSource, recordID, jsonData string) (string, error) {
	if err := s.AddRecord(ctx, dataSource, recordID, jsonData); err != nil {
		return "", err
	}
	return s.InfoResponse, nil
}

func (s *StubEngine) DeleteRecord(_ context.Context, dataSource, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized(fmt.Errorf("stub engine not initialized"))
	}
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.DeleteRecordCalls = append(s.DeleteRecordCalls, StubCall{DataSource: dataSource, RecordID: recordID})
	return nil
}

func (s *StubEngine) DeleteRecordWithInfo(ctx context.Context, dataSource, recordID string) (string, error) {
	if err := s.DeleteRecord(ctx, dataSource, recordID); err != nil {
		return "", err
	}
	return s.InfoResponse, nil
}

func (s *StubEngine) ReevaluateRecord(_ context.Context, dataSource, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized(fmt.Errorf("stub engine not initialized"))
	}
	if err := s.takeFailure(); err != nil {
		return err
	}
	s.ReevaluateRecordCalls = append(s.ReevaluateRecordCalls, StubCall{DataSource: dataSource, RecordID: recordID})
	return nil
}

func (s *StubEngine) ReevaluateRecordWithInfo(ctx context.Context, dataSource, recordID string) (string, error) {
	if err := s.ReevaluateRecord(ctx, dataSource, recordID); err != nil {
		return "", err
	}
	return s.InfoResponse, nil
}

func (s *StubEngine) GetActiveConfigID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeConfigID, nil
}

func (s *StubEngine) GetDefaultConfigID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaultConfigID, nil
}

func (s *StubEngine) Reinit(_ context.Context, configID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeConfigID = configID
	return nil
}

// SetDefaultConfigID simulates an out-of-band configuration change
// (another process publishing a new default configuration).
func (s *StubEngine) SetDefaultConfigID(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultConfigID = id
}

func (s *StubEngine) PrimeEngine(_ context.Context) error { return nil }

func (s *StubEngine) Stats(_ context.Context) (string, error) {
	return `{"workload":{}}`, nil
}

func (s *StubEngine) License(_ context.Context) (string, error) {
	return `{"licenseType":"EVAL","expireDate":"2099-12-31"}`, nil
}

func (s *StubEngine) Destroy(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	return nil
}
