package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing-match/internal/match/model"
)

type fakeMatcher struct {
	scopes  []model.Scope
	matched []model.Listing
	err     error
}

func (f *fakeMatcher) FullRematch(_ context.Context, scope model.Scope) (model.Summary, error) {
	f.scopes = append(f.scopes, scope)
	return model.Summary{RunID: "run-1", Scope: scope, GroupsCreated: 3}, f.err
}

func (f *fakeMatcher) MatchListing(_ context.Context, l model.Listing) (model.IncrementalResult, error) {
	f.matched = append(f.matched, l)
	return model.IncrementalResult{ListingID: l.ID, Outcome: model.OutcomeUnmatched}, f.err
}

type fakeCatalog struct {
	stored  []model.Listing
	matches map[string][]model.ProductMatch
}

func (f *fakeCatalog) UpsertListings(_ context.Context, ls []model.Listing) error {
	f.stored = append(f.stored, ls...)
	return nil
}

func (f *fakeCatalog) MatchesByCategory(_ context.Context, category string) ([]model.ProductMatch, error) {
	return f.matches[category], nil
}

func (f *fakeCatalog) DuplicatesByCategory(context.Context, string) ([]model.DuplicateGroup, error) {
	return nil, nil
}

func router(m Matcher, c Catalog) http.Handler {
	r := chi.NewRouter()
	r.Post("/rematch", Rematch(m))
	r.Post("/listings/match", MatchListing(m, c))
	r.Post("/listings/import", Import(m, c, 8))
	r.Get("/categories/{category}/matches", Matches(c))
	r.Get("/categories/{category}/duplicates", Duplicates(c))
	return r
}

func TestRematch(t *testing.T) {
	m := &fakeMatcher{}
	rec := httptest.NewRecorder()
	router(m, &fakeCatalog{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rematch?retailer=twd", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.Scope{{Retailer: "TWD"}}, m.scopes)
	var sum model.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, 3, sum.GroupsCreated)

	m.err = errors.New("db gone")
	rec = httptest.NewRecorder()
	router(m, &fakeCatalog{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rematch", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "db gone")
}

func TestMatchListing(t *testing.T) {
	m, c := &fakeMatcher{}, &fakeCatalog{}
	body := `{"id":"pw-1","retailerCode":"pw","name":"Samsung Crystal UHD TV 55 inch UA55AU7700","url":"https://pw.test/1","unifiedCategory":"tv","currentPrice":"15490"}`

	rec := httptest.NewRecorder()
	router(m, c).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/listings/match", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, c.stored, 1)
	assert.Equal(t, "PW", c.stored[0].RetailerCode)
	assert.False(t, c.stored[0].DiscoveredAt.IsZero())
	assert.Equal(t, "15490", c.stored[0].CurrentPrice.Decimal.String())
	require.Len(t, m.matched, 1)

	var res model.IncrementalResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, model.OutcomeUnmatched, res.Outcome)
}

func TestMatchListingRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"unknown field":  `{"id":"a","retailerCode":"HP","name":"x","colour":"red"}`,
		"missing name":   `{"id":"a","retailerCode":"HP"}`,
		"missing retail": `{"id":"a","name":"x"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			m, c := &fakeMatcher{}, &fakeCatalog{}
			rec := httptest.NewRecorder()
			router(m, c).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/listings/match", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, c.stored)
			assert.Empty(t, m.matched)
		})
	}
}

func TestMatches(t *testing.T) {
	c := &fakeCatalog{matches: map[string][]model.ProductMatch{
		"tv": {{ID: "m1", MasterListingID: "hp-1", MemberListingIDs: []string{"twd-1"}, UnifiedCategory: "tv"}},
	}}
	rec := httptest.NewRecorder()
	router(&fakeMatcher{}, c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/tv/matches", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var ms []model.ProductMatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ms))
	require.Len(t, ms, 1)
	assert.Equal(t, "hp-1", ms[0].MasterListingID)

	rec = httptest.NewRecorder()
	router(&fakeMatcher{}, c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/fan/duplicates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImport(t *testing.T) {
	m, c := &fakeMatcher{}, &fakeCatalog{}
	csv := "name,brand,price,category\nHatari Slide Fan 16 inch HT-S16M7,Hatari,\"1,290\",fan\n,,,\n"
	body, ct := multipartBody(t, "pw.csv", csv, map[string]string{"retailer": "pw", "rematch": "1"})

	req := httptest.NewRequest(http.MethodPost, "/listings/import", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router(m, c).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out importResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Imported)
	require.NotNil(t, out.Summary)
	assert.Equal(t, []model.Scope{{Retailer: "PW"}}, m.scopes)

	require.Len(t, c.stored, 1)
	assert.Equal(t, "PW", c.stored[0].RetailerCode)
	assert.Equal(t, "1290", c.stored[0].CurrentPrice.Decimal.String())
	assert.False(t, c.stored[0].DiscoveredAt.IsZero())
}

func TestImportWithoutNameColumn(t *testing.T) {
	body, ct := multipartBody(t, "pw.csv", "a,b\n1,2\n", map[string]string{"retailer": "PW"})
	req := httptest.NewRequest(http.MethodPost, "/listings/import", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router(&fakeMatcher{}, &fakeCatalog{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
