// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/breach"
	"codeberg.org/unirex/guardia-monitor/internal/i18n"
	"codeberg.org/unirex/guardia-monitor/internal/otp"
	"github.com/samber/lo"
)

// SessionView is the public shape of the verification session. The code
// itself is never exposed.
type SessionView struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Email     string     `json:"email,omitempty"`
	Pending   bool       `json:"pending"`
	Verified  bool       `json:"verified"`
	Expired   bool       `json:"expired"`
}

// NewSessionView builds the view of s at now.
func NewSessionView(s otp.Session, now time.Time) SessionView {
	v := SessionView{
		Email:    s.Email,
		Pending:  s.Pending(),
		Verified: s.Verified,
		Expired:  s.Code != "" && s.IsExpired(now),
	}
	if !s.ExpiresAt.IsZero() {
		v.ExpiresAt = lo.ToPtr(s.ExpiresAt.UTC())
	}
	return v
}

// TierView is a tier with its localized label.
type TierView struct {
	ID       breach.Tier `json:"id"`
	Label    string      `json:"label"`
	Color    string      `json:"color"`
	DarkText bool        `json:"dark_text"`
}

func newTierView(ctx context.Context, t breach.Tier) TierView {
	return TierView{
		ID:       t,
		Label:    i18n.T(ctx, t.LabelID()),
		Color:    t.Color(),
		DarkText: t.LightBackground(),
	}
}

// BucketView is one legend row or chart slice.
type BucketView struct {
	TierView
	Count int `json:"count"`
}

// SummaryView is the localized tier aggregation.
type SummaryView struct {
	Legend []BucketView `json:"legend"`
	Chart  []BucketView `json:"chart"`
	Total  int          `json:"total"`
}

func newSummaryView(ctx context.Context, s breach.Summary) SummaryView {
	toView := func(b breach.Bucket, _ int) BucketView {
		return BucketView{TierView: newTierView(ctx, b.Tier), Count: b.Count}
	}
	return SummaryView{
		Legend: lo.Map(s.Legend, toView),
		Chart:  lo.Map(s.Chart, toView),
		Total:  s.Total,
	}
}

// BreachView is a breach as listed in the results.
type BreachView struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Domain      string   `json:"domain"`
	Website     string   `json:"website,omitempty"`
	BreachDate  string   `json:"breach_date"`
	LogoPath    string   `json:"logo_path,omitempty"`
	PwnCountFmt string   `json:"pwn_count_display"`
	Tier        TierView `json:"tier"`
	PwnCount    int64    `json:"pwn_count"`
	IsVerified  bool     `json:"is_verified"`
	IsSensitive bool     `json:"is_sensitive"`
	IsMalware   bool     `json:"is_malware"`
}

func newBreachView(ctx context.Context, b breach.Breach) BreachView {
	v := BreachView{
		Name:        b.Name,
		Title:       b.Title,
		Domain:      b.Domain,
		Website:     b.Website(),
		BreachDate:  b.BreachDate,
		PwnCount:    b.PwnCount,
		PwnCountFmt: breach.FormatPwnCount(b.PwnCount),
		Tier:        newTierView(ctx, breach.Classify(b)),
		IsVerified:  b.IsVerified,
		IsSensitive: b.IsSensitive,
		IsMalware:   b.IsMalware,
	}
	if b.HasLogo() {
		v.LogoPath = b.LogoPath
	}
	return v
}

// Advice is the localized recommendation for a tier.
type Advice struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// BreachDetailView is a single breach with everything the detail screen
// shows.
type BreachDetailView struct {
	BreachView
	Description  string   `json:"description"`
	AddedDate    string   `json:"added_date,omitempty"`
	Verification string   `json:"verification"`
	DataClasses  []string `json:"data_classes"`
	Notices      []string `json:"notices"`
	Advice       Advice   `json:"advice"`
}

func newBreachDetailView(ctx context.Context, b breach.Breach) BreachDetailView {
	tier := breach.Classify(b)

	v := BreachDetailView{
		BreachView:   newBreachView(ctx, b),
		Description:  b.Description,
		AddedDate:    b.AddedDate,
		Verification: i18n.T(ctx, lo.Ternary(b.IsVerified, "verified_breach", "unverified_breach")),
		DataClasses:  breach.TranslateDataClasses(i18n.GetLocale(ctx), b.DataClasses),
		Notices:      []string{},
		Advice: Advice{
			Title: i18n.T(ctx, tier.AdviceTitleID()),
			Text:  i18n.T(ctx, tier.AdviceTextID()),
		},
	}
	if b.IsSensitive {
		v.Notices = append(v.Notices, i18n.T(ctx, "sensitive_notice"))
	}
	if b.IsMalware {
		v.Notices = append(v.Notices, i18n.T(ctx, "malware_notice_title")+": "+i18n.T(ctx, "malware_notice"))
	}
	return v
}

// resultMessage is the headline of a result screen.
func resultMessage(ctx context.Context, email string, count int) string {
	if count == 0 {
		return i18n.T(ctx, "no_breaches")
	}
	return i18n.TPluralData(ctx, "breaches_found", count, map[string]any{"Email": email})
}
