package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNewSegmentBody(t *testing.T) {
	tests := []struct {
		name string
		in   NewSegment
		want string
	}{
		{
			name: "followed",
			in:   NewSegment{Name: "s1", BuildMode: BuildModeFollowed, AccountID: "42"},
			want: `{"followed":{"user_ids":["42"]},"name":"s1"}`,
		},
		{
			name: "engaged",
			in:   NewSegment{Name: "s1", BuildMode: BuildModeEngaged, AccountID: "42"},
			want: `{"engaged":{"user_ids":["42"]},"name":"s1"}`,
		},
		{
			name: "tailored",
			in:   NewSegment{Name: "s1", BuildMode: BuildModeTailored, AccountID: "42"},
			want: `{"name":"s1","tailored":{"tailored_audience_ids":["42"]}}`,
		},
		{
			name: "без режима",
			in:   NewSegment{Name: "s1"},
			want: `{"name":"s1"}`,
		},
		{
			name: "режим без аккаунта",
			in:   NewSegment{Name: "s1", BuildMode: BuildModeImpressed},
			want: `{"name":"s1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.in)
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ожидалось %s, получено %s", tt.want, got)
			}
		})
	}
}

func TestParseBuildMode(t *testing.T) {
	if m, ok := ParseBuildMode(" Followed "); !ok || m != BuildModeFollowed {
		t.Errorf("ожидался followed, получено %q (%v)", m, ok)
	}
	if _, ok := ParseBuildMode("retweeted"); ok {
		t.Errorf("неизвестный режим не должен приниматься")
	}
	if m, ok := ParseBuildMode(""); !ok || m != BuildModeNone {
		t.Errorf("пустой режим должен быть допустим")
	}
}

func TestAudienceHasSegment(t *testing.T) {
	a := Audience{ID: "a1", SegmentIDs: []string{"s1", "s2"}}
	if !a.HasSegment("s2") {
		t.Errorf("ожидалось наличие s2")
	}
	if a.HasSegment("s3") {
		t.Errorf("s3 не входит в аудиторию")
	}
}

func TestAPIErrorIs(t *testing.T) {
	locked := &APIError{Method: "POST", Path: "/segments/1/ids", Status: 400, Reason: ReasonLocked, Message: "not modifiable"}
	wrapped := fmt.Errorf("append: %w", locked)

	if !errors.Is(wrapped, ErrSegmentLocked) {
		t.Errorf("ожидалось совпадение с ErrSegmentLocked")
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Errorf("locked не должен совпадать с ErrNotFound")
	}

	got, ok := AsAPIError(wrapped)
	if !ok || got.Status != 400 {
		t.Errorf("AsAPIError должен вернуть исходную ошибку")
	}
}
