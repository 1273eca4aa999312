package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ctsPrefix = "/cts/v1.0/{project_id}"

// fakeTrackerStore is a single-tracker CTS backend.
type fakeTrackerStore struct {
	tracker *Tracker
	traces  []Trace
}

func (s *fakeTrackerStore) register(r *mux.Router) {
	r.HandleFunc(ctsPrefix+"/tracker", requireToken(s.create)).Methods(http.MethodPost)
	r.HandleFunc(ctsPrefix+"/tracker", requireToken(s.get)).Methods(http.MethodGet)
	r.HandleFunc(ctsPrefix+"/tracker/{name}", requireToken(s.update)).Methods(http.MethodPut)
	r.HandleFunc(ctsPrefix+"/tracker", requireToken(s.delete)).Methods(http.MethodDelete)
	r.HandleFunc(ctsPrefix+"/{name}/trace", requireToken(s.list)).Methods(http.MethodGet)
}

func (s *fakeTrackerStore) create(w http.ResponseWriter, r *http.Request) {
	if s.tracker != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error_code": "CTS.0003",
			"error_msg":  "The tracker already exists.",
		})
		return
	}
	var opts TrackerOptions
	json.NewDecoder(r.Body).Decode(&opts)
	s.tracker = &Tracker{
		Name:           DefaultTrackerName,
		BucketName:     opts.BucketName,
		FilePrefixName: opts.FilePrefixName,
		Status:         "enabled",
		SMN:            opts.SMN,
	}
	writeJSON(w, http.StatusCreated, s.tracker)
}

func (s *fakeTrackerStore) get(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil || r.URL.Query().Get("tracker_name") != s.tracker.Name {
		writeJSON(w, http.StatusOK, []Tracker{})
		return
	}
	writeJSON(w, http.StatusOK, []Tracker{*s.tracker})
}

func (s *fakeTrackerStore) update(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil || mux.Vars(r)["name"] != s.tracker.Name {
		writeJSON(w, http.StatusNotFound, map[string]string{"error_code": "CTS.0001", "error_msg": "tracker not found"})
		return
	}
	var opts TrackerOptions
	json.NewDecoder(r.Body).Decode(&opts)
	if opts.FilePrefixName != "" {
		s.tracker.FilePrefixName = opts.FilePrefixName
	}
	if opts.Status != "" {
		s.tracker.Status = opts.Status
	}
	// empty body, as some regions answer
	w.WriteHeader(http.StatusOK)
}

func (s *fakeTrackerStore) delete(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error_code": "CTS.0001", "error_msg": "tracker not found"})
		return
	}
	s.tracker = nil
	w.WriteHeader(http.StatusNoContent)
}

// list pages through s.traces; the marker is the index of the next trace.
func (s *fakeTrackerStore) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	start, _ := strconv.Atoi(r.URL.Query().Get("next"))
	serviceType := r.URL.Query().Get("service_type")

	var matching []Trace
	for _, tr := range s.traces {
		if serviceType == "" || tr.ServiceType == serviceType {
			matching = append(matching, tr)
		}
	}

	end := start + limit
	if end > len(matching) {
		end = len(matching)
	}
	page := tracePage{Traces: matching[start:end]}
	page.MetaData.Count = end - start
	if end < len(matching) {
		page.MetaData.Marker = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, page)
}

func newCTSTestClient(t *testing.T) (*CTSClient, *fakeTrackerStore) {
	t.Helper()
	fc := newFakeCloud(t)
	store := &fakeTrackerStore{}
	store.register(fc.Router)
	return New(fc.config()).CTS(), store
}

func TestCTS_TrackerLifecycle(t *testing.T) {
	cts, _ := newCTSTestClient(t)
	ctx := context.Background()

	created, err := cts.CreateTracker(ctx, TrackerOptions{
		BucketName:     "a1b2c3d4-sdk-test",
		FilePrefixName: "a1b2c3d4-cts-sdk-",
		SMN:            &SMN{IsSupportSMN: true, TopicID: "urn:smn:eu-de:p:topic"},
	})
	require.NoError(t, err)
	assert.Equal(t, "system", created.Name)
	assert.Equal(t, "a1b2c3d4-sdk-test", created.BucketName)
	require.NotNil(t, created.SMN)
	assert.True(t, created.SMN.IsSupportSMN)

	_, err = cts.CreateTracker(ctx, TrackerOptions{BucketName: "other"})
	require.Error(t, err)
	assert.True(t, IsBadRequest(err))
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "CTS.0003", httpErr.Code)
	assert.Equal(t, "The tracker already exists.", httpErr.Message())

	got, err := cts.GetTracker(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4-cts-sdk-", got.FilePrefixName)

	updated, err := cts.UpdateTracker(ctx, "system", TrackerOptions{FilePrefixName: "a1b2c3d4-cts-sdk-new-"})
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3d4-cts-sdk-new-", updated.FilePrefixName)
	assert.Equal(t, "a1b2c3d4-sdk-test", updated.BucketName)

	require.NoError(t, cts.DeleteTracker(ctx, "system"))

	_, err = cts.GetTracker(ctx, "system")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	err = cts.DeleteTracker(ctx, "system")
	assert.True(t, IsNotFound(err))
}

func TestCTS_Traces(t *testing.T) {
	cts, store := newCTSTestClient(t)
	for i := 0; i < 120; i++ {
		service := "CTS"
		if i%2 == 1 {
			service = "ECS"
		}
		store.traces = append(store.traces, Trace{
			ID:          fmt.Sprintf("trace-%03d", i),
			Name:        "createTracker",
			ServiceType: service,
		})
	}
	ctx := context.Background()

	all, err := cts.Traces(ctx, "", TraceQuery{})
	require.NoError(t, err)
	require.Len(t, all, 120)
	assert.Equal(t, "trace-000", all[0].ID)
	assert.Equal(t, "trace-119", all[119].ID)
	assert.Equal(t, "system", all[0].TrackerName)

	limited, err := cts.Traces(ctx, "system", TraceQuery{Limit: 70})
	require.NoError(t, err)
	assert.Len(t, limited, 70)

	filtered, err := cts.Traces(ctx, "system", TraceQuery{ServiceType: "CTS", Limit: 5})
	require.NoError(t, err)
	require.Len(t, filtered, 5)
	for _, tr := range filtered {
		assert.Equal(t, "CTS", tr.ServiceType)
	}
}

func TestCTS_TracesEmpty(t *testing.T) {
	cts, _ := newCTSTestClient(t)

	traces, err := cts.Traces(context.Background(), "system", TraceQuery{})
	require.NoError(t, err)
	assert.Empty(t, traces)
}

func TestTraceQuery_Values(t *testing.T) {
	v := TraceQuery{
		ServiceType:  "CTS",
		ResourceType: "tracker",
		TraceRating:  "warning",
		From:         1700000000000,
	}.values()

	assert.Equal(t, "CTS", v.Get("service_type"))
	assert.Equal(t, "tracker", v.Get("res_type"))
	assert.Equal(t, "warning", v.Get("trace_rating"))
	assert.Equal(t, "1700000000000", v.Get("from"))
	assert.False(t, v.Has("to"))
	assert.False(t, v.Has("res_id"))
}

func TestDecodeTracker(t *testing.T) {
	tr, err := decodeTracker([]byte(`{"tracker_name": "system", "bucket_name": "b"}`))
	require.NoError(t, err)
	assert.Equal(t, "b", tr.BucketName)

	tr, err = decodeTracker([]byte(` [{"tracker_name": "system"}]`))
	require.NoError(t, err)
	assert.Equal(t, "system", tr.Name)

	tr, err = decodeTracker([]byte(`[]`))
	require.NoError(t, err)
	assert.Nil(t, tr)

	_, err = decodeTracker([]byte(`not json`))
	assert.Error(t, err)
}
