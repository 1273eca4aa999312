package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultTrackerName is the only tracker name the trace service accepts
const DefaultTrackerName = "system"

// defaultTracePageSize is the page size the service applies when none is sent
const defaultTracePageSize = 50

// CTSClient talks to the cloud trace service
type CTSClient struct {
	service *serviceClient
}

// Tracker records operations of the project into an OBS bucket
type Tracker struct {
	Name           string `json:"tracker_name,omitempty"`
	BucketName     string `json:"bucket_name,omitempty"`
	FilePrefixName string `json:"file_prefix_name,omitempty"`
	Status         string `json:"status,omitempty"`
	Detail         string `json:"detail,omitempty"`
	SMN            *SMN   `json:"smn,omitempty"`
}

// SMN configures key event notifications of a tracker
type SMN struct {
	IsSupportSMN          bool     `json:"is_support_smn"`
	TopicID               string   `json:"topic_id,omitempty"`
	Operations            []string `json:"operations,omitempty"`
	IsSendAllKeyOperation bool     `json:"is_send_all_key_operation"`
	NeedNotifyUserList    []string `json:"need_notify_user_list,omitempty"`
}

// TrackerOptions are the writable attributes of a tracker. Empty fields are
// left unchanged on update.
type TrackerOptions struct {
	BucketName     string `json:"bucket_name,omitempty"`
	FilePrefixName string `json:"file_prefix_name,omitempty"`
	Status         string `json:"status,omitempty"`
	SMN            *SMN   `json:"smn,omitempty"`
}

// Trace is one recorded operation
type Trace struct {
	ID           string         `json:"trace_id"`
	Name         string         `json:"trace_name"`
	Rating       string         `json:"trace_rating,omitempty"`
	Type         string         `json:"trace_type,omitempty"`
	ServiceType  string         `json:"service_type"`
	ResourceType string         `json:"resource_type,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	ResourceName string         `json:"resource_name,omitempty"`
	SourceIP     string         `json:"source_ip,omitempty"`
	Time         int64          `json:"time,omitempty"`
	RecordTime   int64          `json:"record_time,omitempty"`
	User         map[string]any `json:"user,omitempty"`
	Request      string         `json:"request,omitempty"`
	Response     string         `json:"response,omitempty"`
	Code         string         `json:"code,omitempty"`
	APIVersion   string         `json:"api_version,omitempty"`
	Message      string         `json:"message,omitempty"`
	TrackerName  string         `json:"tracker_name,omitempty"`
}

// TraceQuery filters a trace listing. Limit caps the total number of traces
// returned across pages; zero means all.
type TraceQuery struct {
	Limit        int
	ServiceType  string
	ResourceType string
	ResourceID   string
	ResourceName string
	TraceName    string
	TraceRating  string
	User         string
	// From and To are millisecond timestamps
	From int64
	To   int64
}

func (q TraceQuery) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("service_type", q.ServiceType)
	set("res_type", q.ResourceType)
	set("res_id", q.ResourceID)
	set("res_name", q.ResourceName)
	set("trace_name", q.TraceName)
	set("trace_rating", q.TraceRating)
	set("user", q.User)
	if q.From > 0 {
		v.Set("from", strconv.FormatInt(q.From, 10))
	}
	if q.To > 0 {
		v.Set("to", strconv.FormatInt(q.To, 10))
	}
	return v
}

// CreateTracker creates the tracker of the project
func (c *CTSClient) CreateTracker(ctx context.Context, opts TrackerOptions) (*Tracker, error) {
	var tracker Tracker
	_, err := c.service.do(ctx, request{
		operation: "create tracker",
		method:    http.MethodPost,
		path:      "tracker",
		body:      opts,
	}, &tracker)
	if err != nil {
		return nil, err
	}
	if tracker.Name == "" {
		tracker.Name = DefaultTrackerName
	}
	return &tracker, nil
}

// GetTracker fetches a tracker by name
func (c *CTSClient) GetTracker(ctx context.Context, name string) (*Tracker, error) {
	if name == "" {
		name = DefaultTrackerName
	}
	data, err := c.service.do(ctx, request{
		operation: "get tracker",
		method:    http.MethodGet,
		path:      "tracker",
		query:     url.Values{"tracker_name": {name}},
		ok:        []int{http.StatusOK},
	}, nil)
	if err != nil {
		return nil, err
	}

	tracker, err := decodeTracker(data)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, Operation: "get tracker", Detail: fmt.Sprintf("tracker %q not found", name)}
	}
	return tracker, nil
}

// decodeTracker accepts both a single tracker object and a list of them.
func decodeTracker(data []byte) (*Tracker, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var trackers []Tracker
		if err := json.Unmarshal(data, &trackers); err != nil {
			return nil, fmt.Errorf("failed to decode get tracker response: %w", err)
		}
		if len(trackers) == 0 {
			return nil, nil
		}
		return &trackers[0], nil
	}

	var tracker Tracker
	if err := json.Unmarshal(data, &tracker); err != nil {
		return nil, fmt.Errorf("failed to decode get tracker response: %w", err)
	}
	return &tracker, nil
}

// UpdateTracker changes the writable attributes of a tracker and returns
// its new state.
func (c *CTSClient) UpdateTracker(ctx context.Context, name string, opts TrackerOptions) (*Tracker, error) {
	if name == "" {
		name = DefaultTrackerName
	}
	var tracker Tracker
	_, err := c.service.do(ctx, request{
		operation: "update tracker",
		method:    http.MethodPut,
		path:      "tracker/" + url.PathEscape(name),
		body:      opts,
	}, &tracker)
	if err != nil {
		return nil, err
	}
	// Some regions answer the update with an empty body
	if tracker.Name == "" {
		return c.GetTracker(ctx, name)
	}
	return &tracker, nil
}

// DeleteTracker deletes a tracker by name
func (c *CTSClient) DeleteTracker(ctx context.Context, name string) error {
	if name == "" {
		name = DefaultTrackerName
	}
	_, err := c.service.do(ctx, request{
		operation: "delete tracker",
		method:    http.MethodDelete,
		path:      "tracker",
		query:     url.Values{"tracker_name": {name}},
	}, nil)
	return err
}

type tracePage struct {
	Traces   []Trace `json:"traces"`
	MetaData struct {
		Count  int    `json:"count"`
		Marker string `json:"marker"`
	} `json:"meta_data"`
}

// Traces lists the traces recorded by tracker, newest first, following the
// marker of each page until the listing or q.Limit is exhausted.
func (c *CTSClient) Traces(ctx context.Context, tracker string, q TraceQuery) ([]Trace, error) {
	if tracker == "" {
		tracker = DefaultTrackerName
	}

	pageSize := defaultTracePageSize
	if q.Limit > 0 && q.Limit < pageSize {
		pageSize = q.Limit
	}

	var traces []Trace
	marker := ""
	for {
		query := q.values()
		query.Set("limit", strconv.Itoa(pageSize))
		if marker != "" {
			query.Set("next", marker)
		}

		var page tracePage
		_, err := c.service.do(ctx, request{
			operation: "list traces",
			method:    http.MethodGet,
			path:      url.PathEscape(tracker) + "/trace",
			query:     query,
			ok:        []int{http.StatusOK},
		}, &page)
		if err != nil {
			return nil, err
		}

		for _, trace := range page.Traces {
			if trace.TrackerName == "" {
				trace.TrackerName = tracker
			}
			traces = append(traces, trace)
			if q.Limit > 0 && len(traces) >= q.Limit {
				return traces, nil
			}
		}

		if page.MetaData.Marker == "" || page.MetaData.Marker == marker || len(page.Traces) == 0 {
			return traces, nil
		}
		marker = page.MetaData.Marker
	}
}
