package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func newClient(baseURL, apiKey string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 10 * time.Minute},
	}
}

type jobInfo struct {
	ID               string            `json:"id"`
	State            string            `json:"state"`
	Filename         string            `json:"filename"`
	ByteSize         int64             `json:"byte_size"`
	MediaDuration    float64           `json:"media_duration"`
	Progress         float64           `json:"progress"`
	EstimatedSeconds float64           `json:"estimated_seconds"`
	CreatedAt        time.Time         `json:"created_at"`
	Artifacts        map[string]string `json:"artifacts"`
	ErrorMessage     string            `json:"error"`
	Warning          string            `json:"warning"`
}

type resultInfo struct {
	ID        string            `json:"id"`
	Artifacts map[string]string `json:"artifacts"`
	Files     map[string]string `json:"files"`
	Warning   string            `json:"warning"`
}

type statsInfo struct {
	Extensions map[string]extensionProfile `json:"extensions"`
	Global     extensionProfile            `json:"global"`
}

type extensionProfile struct {
	Extension            string  `json:"extension"`
	Samples              int     `json:"samples"`
	AvgMediaDuration     float64 `json:"avg_media_duration"`
	AvgConversionSeconds float64 `json:"avg_conversion_seconds"`
	AvgTranscribeSeconds float64 `json:"avg_transcription_seconds"`
	ProcessingRatio      float64 `json:"processing_ratio"`
}

type submitOptions struct {
	diarize  bool
	speakers int
	formats  string
}

func (c *client) submit(paths []string, options submitOptions) ([]jobInfo, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if options.diarize {
		if err := writer.WriteField("diarize", "true"); err != nil {
			return nil, err
		}
	}
	if options.speakers > 0 {
		if err := writer.WriteField("speakers", strconv.Itoa(options.speakers)); err != nil {
			return nil, err
		}
	}
	if options.formats != "" {
		if err := writer.WriteField("formats", options.formats); err != nil {
			return nil, err
		}
	}

	for _, path := range paths {
		if err := attachFile(writer, path); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/jobs", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	if len(paths) == 1 {
		var job jobInfo
		if err := c.do(req, &job); err != nil {
			return nil, err
		}
		return []jobInfo{job}, nil
	}
	var payload struct {
		Jobs []jobInfo `json:"jobs"`
	}
	if err := c.do(req, &payload); err != nil {
		return nil, err
	}
	return payload.Jobs, nil
}

func attachFile(writer *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func (c *client) getJob(id string) (jobInfo, error) {
	var job jobInfo
	err := c.getJSON("/api/v1/jobs/"+id, &job)
	return job, err
}

func (c *client) listJobs(state string) ([]jobInfo, error) {
	path := "/api/v1/jobs"
	if state != "" {
		path += "?state=" + state
	}
	var payload struct {
		Jobs []jobInfo `json:"jobs"`
	}
	err := c.getJSON(path, &payload)
	return payload.Jobs, err
}

func (c *client) deleteJob(id string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/v1/jobs/"+id, nil)
	if err != nil {
		return err
	}
	return c.do(req, &map[string]string{})
}

func (c *client) result(id string) (resultInfo, error) {
	var payload resultInfo
	err := c.getJSON("/api/v1/jobs/"+id+"/result", &payload)
	return payload, err
}

func (c *client) stats() (statsInfo, error) {
	var payload statsInfo
	err := c.getJSON("/api/v1/stats", &payload)
	return payload, err
}

func (c *client) estimate(files []estimateHint) (float64, error) {
	body, err := json.Marshal(map[string]any{"files": files})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/estimate", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	var payload struct {
		EstimatedSeconds float64 `json:"estimated_seconds"`
	}
	if err := c.do(req, &payload); err != nil {
		return 0, err
	}
	return payload.EstimatedSeconds, nil
}

type estimateHint struct {
	Extension     string  `json:"extension"`
	MediaDuration float64 `json:"media_duration"`
}

func (c *client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var failure struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&failure); decodeErr == nil && failure.Error != "" {
			return fmt.Errorf("%s (%d)", failure.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
