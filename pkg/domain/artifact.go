package domain

import "time"

// Destination identifies the namespace an artifact is published under:
// an account plus a collection within that account.
type Destination struct {
	AccountID    string `json:"account_id"`
	CollectionID string `json:"collection_id"`
}

// Artifact is the persisted output of a conversion: the metadata record for a
// blob of canonical text, Markdown, or JSON written to the content store.
// An Artifact is created once per conversion request and never mutated.
type Artifact struct {
	// ID is the globally unique identifier of the artifact. It is also the
	// basename of the content-store key the body was written under.
	ID string `bson:"id" json:"id"`

	// Title is the document title, when known. May be empty for content that
	// had no extractable title (e.g. the whole-page fallback).
	Title string `bson:"title" json:"title"`

	// Date is the published date of the source as a calendar date
	// (YYYY-MM-DD). Defaults to the processing date when unknown.
	Date string `bson:"date" json:"date"`

	// Status is "success" for a published artifact.
	Status string `bson:"status" json:"status"`

	// Link is the public content-store URI of the persisted body.
	Link string `bson:"link" json:"link"`

	// Type is the content kind of the source: html, pdf, audio, video, or text.
	Type string `bson:"type" json:"type"`

	// Subtype is the persisted representation: txt, markdown, or json.
	Subtype string `bson:"subtype" json:"subtype"`

	// Length is the word count of the body actually persisted.
	Length int `bson:"length" json:"length"`

	// OriginURL is the URL the conversion was requested for. Empty for
	// artifacts created directly from caller-supplied text.
	OriginURL string `bson:"origin_url,omitempty" json:"origin_url,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// AssetMeta is previously-recorded metadata for a content-store object,
// resolved from the relational metadata store so conversions can reuse known
// titles and dates instead of re-deriving them.
type AssetMeta struct {
	Title string
	Date  string
	Type  string
	Size  int64
}

// Quote is a third-party quote extracted from source text.
type Quote struct {
	Speaker     string `json:"speaker"`
	Affiliation string `json:"affiliation"`
	Quote       string `json:"quote"`
}

// LinkRef is a hyperlink extracted from source text along with the context it
// appeared in.
type LinkRef struct {
	Link    string `json:"link"`
	Context string `json:"context"`
}

// FactBundle is the structured result of fact/quote/link synthesis over a
// piece of extracted text.
type FactBundle struct {
	Facts  []string  `json:"facts"`
	Quotes []Quote   `json:"quotes"`
	Links  []LinkRef `json:"links"`
}
