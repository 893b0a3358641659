package mcp

import (
	"errors"
	"fmt"
)

// ItemResult는 배치 작업에서 서버 하나의 결과입니다.
type ItemResult struct {
	Server  string `json:"server"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	err error
}

// BatchResult는 워크플로/자동 시작/전체 중지처럼 여러 서버를 순차 처리한 결과입니다.
// 모든 항목이 성공해야 성공입니다.
type BatchResult struct {
	Operation string       `json:"operation"`
	Target    string       `json:"target,omitempty"`
	Items     []ItemResult `json:"results"`
}

func newBatch(operation, target string) *BatchResult {
	return &BatchResult{Operation: operation, Target: target, Items: []ItemResult{}}
}

// add는 항목 결과를 추가합니다.
func (b *BatchResult) add(server string, err error) {
	item := ItemResult{Server: server, Success: err == nil, err: err}
	if err != nil {
		item.Error = err.Error()
	}
	b.Items = append(b.Items, item)
}

// OK는 모든 항목이 성공했는지 반환합니다. 항목이 없으면 성공입니다.
func (b *BatchResult) OK() bool {
	for _, item := range b.Items {
		if !item.Success {
			return false
		}
	}
	return true
}

// Failed는 실패한 서버 이름 목록입니다.
func (b *BatchResult) Failed() []string {
	var names []string
	for _, item := range b.Items {
		if !item.Success {
			names = append(names, item.Server)
		}
	}
	return names
}

// Err는 실패한 항목의 에러를 모두 결합합니다. 모두 성공했으면 nil입니다.
func (b *BatchResult) Err() error {
	var errs []error
	for _, item := range b.Items {
		if item.Success {
			continue
		}
		err := item.err
		if err == nil {
			err = errors.New(item.Error)
		}
		errs = append(errs, fmt.Errorf("%s: %w", item.Server, err))
	}
	return errors.Join(errs...)
}
