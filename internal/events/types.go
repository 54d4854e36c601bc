// Package events defines the tracking event record and its wire encoding.
package events

import (
	"fmt"
	"strings"
)

// Category is the kind of interaction an event records.
type Category string

const (
	// CategoryPage represents a page view.
	CategoryPage Category = "page"
	// CategoryClick represents a click.
	CategoryClick Category = "click"
	// CategoryDuration represents time spent on a page.
	CategoryDuration Category = "duration"
	// CategoryError represents a client-side error.
	CategoryError Category = "error"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPage, CategoryClick, CategoryDuration, CategoryError:
		return true
	}
	return false
}

// ParseCategory converts a case-insensitive name into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown event type %q", s)
	}
	return c, nil
}

// Source is the deployment the event was produced by.
type Source string

const (
	// SourceSaas is the hosted deployment.
	SourceSaas Source = "saas"
	// SourceLocal is an on-premises deployment.
	SourceLocal Source = "local"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceSaas || s == SourceLocal
}

// ParseSource converts a case-insensitive name into a Source.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if !src.Valid() {
		return "", fmt.Errorf("unknown source %q", s)
	}
	return src, nil
}

// Platform tags the business module an event belongs to. The set is open;
// the constants below are the platforms known today.
type Platform string

const (
	PlatformOpenClass       Platform = "openclass"
	PlatformInternProgram   Platform = "internprogram"
	PlatformIndustryProject Platform = "industryproject"
	PlatformLab             Platform = "lab"
	PlatformInnoCompetition Platform = "innocompetition"
	PlatformObe             Platform = "obe"
	PlatformUjob            Platform = "ujob"
	PlatformCareerTalk      Platform = "careertalk"
	PlatformJobFair         Platform = "jobfair"
)

// UserIDType selects which prefix a raw user id is tagged with.
type UserIDType string

const (
	// UserIDTypeCustomer tags ids as customer ids (the default).
	UserIDTypeCustomer UserIDType = "CustomerId"
	// UserIDTypeMember tags ids as member ids.
	UserIDTypeMember UserIDType = "MemberId"
)

// ParseUserIDType accepts "CustomerId"/"MemberId" in any case, with or without the "Id" suffix.
func ParseUserIDType(s string) (UserIDType, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "id") {
	case "customer":
		return UserIDTypeCustomer, nil
	case "member":
		return UserIDTypeMember, nil
	}
	return "", fmt.Errorf("unknown user id type %q", s)
}

// UserID is a resolved, tagged identity.
type UserID string

const (
	// UserIDAnonymous is reported when no user is logged in.
	UserIDAnonymous UserID = "nologin"

	CustomerIDPrefix = "quc_customer_id:"
	MemberIDPrefix   = "member_id:"
)

// Event is one tracking record. It is not modified after it has been built.
type Event struct {
	UserID    UserID   `json:"uid" yaml:"uid"`
	URL       string   `json:"url" yaml:"url"`
	Type      Category `json:"type" yaml:"type"`
	GUID      string   `json:"guid" yaml:"guid"`
	Source    Source   `json:"source" yaml:"source"`
	Platform  Platform `json:"platform" yaml:"platform"`
	LocalTime string   `json:"local_time" yaml:"local_time"` // e.g. "2023/8/21 15:36:15"
	EventTime int64    `json:"event_time" yaml:"event_time"` // Unix milliseconds
	BData     string   `json:"bdata,omitempty" yaml:"bdata,omitempty"`
}

// Params holds the caller-supplied part of an event.
type Params struct {
	Type     Category `json:"type"`
	Platform Platform `json:"platform"`
	BData    string   `json:"bdata,omitempty"`
}
