package services

import (
	"context"
	"strings"
	"testing"
)

func TestFlagPostAndComment(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewReportService(gdb)
	ctx := context.Background()

	r, err := svc.FlagPost(ctx, 7, 3, "  spam  ")
	if err != nil {
		t.Fatalf("FlagPost: %v", err)
	}
	if r.PostID == nil || *r.PostID != 7 || r.CommentID != nil || r.Reason != "spam" {
		t.Errorf("unexpected report %+v", r)
	}

	r, err = svc.FlagComment(ctx, 9, 3, "rude")
	if err != nil {
		t.Fatalf("FlagComment: %v", err)
	}
	if r.CommentID == nil || *r.CommentID != 9 || r.PostID != nil {
		t.Errorf("unexpected report %+v", r)
	}

	_, err = svc.FlagPost(ctx, 0, 3, "x")
	wantKind(t, err, KindValidation)
	_, err = svc.FlagComment(ctx, 9, 0, "x")
	wantKind(t, err, KindValidation)
	_, err = svc.FlagPost(ctx, 7, 3, strings.Repeat("a", 501))
	wantKind(t, err, KindValidation)
}

func TestFlagStripsMarkup(t *testing.T) {
	gdb := newTestDB(t)
	r, err := NewReportService(gdb).FlagComment(context.Background(), 1, 2, "<a href=\"x\">click</a> here")
	if err != nil {
		t.Fatal(err)
	}
	if r.Reason != "click here" {
		t.Errorf("reason = %q", r.Reason)
	}
}

func TestFlagReasonLimitCountsCharacters(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewReportService(gdb)
	ctx := context.Background()

	// 500 个汉字是 1500 字节，仍然合法
	if _, err := svc.FlagPost(ctx, 7, 3, strings.Repeat("垃", 500)); err != nil {
		t.Fatalf("500-character reason rejected: %v", err)
	}
	_, err := svc.FlagPost(ctx, 7, 3, strings.Repeat("垃", 501))
	wantKind(t, err, KindValidation)
}
