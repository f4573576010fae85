package mlflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const timeout = time.Minute // generous timeout in case the tracking server is slow

// Run statuses understood by the tracking server.
const (
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
)

// Client talks to an MLflow-compatible tracking server over its REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the tracking server at trackingURI,
// e.g. "http://localhost:5000".
func NewClient(trackingURI string) *Client {
	return &Client{
		baseURL: strings.TrimRight(trackingURI, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Run is one recorded execution context on the tracking server. Tags,
// parameters, metrics, and artifacts logged through a Run are attached to
// that run's id.
type Run struct {
	ID           string
	ExperimentID string

	client *Client
}

// GetOrCreateExperiment returns the id of the named experiment, creating
// it on the server if it does not exist yet.
func (c *Client) GetOrCreateExperiment(name string) (string, error) {
	u := fmt.Sprintf("%s/api/2.0/mlflow/experiments/get-by-name?experiment_name=%s",
		c.baseURL, url.QueryEscape(name))

	resp, err := c.client.Get(u)
	if err != nil {
		return "", errors.Wrapf(err, "error getting experiment %s", name)
	}
	body, err := readBody(resp)
	if err != nil && resp.StatusCode != http.StatusNotFound {
		return "", errors.Wrapf(err, "error getting experiment %s", name)
	}

	if resp.StatusCode == http.StatusOK {
		var out struct {
			Experiment struct {
				ExperimentID string `json:"experiment_id"`
			} `json:"experiment"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return "", errors.Wrapf(err, "error decoding experiment %s", name)
		}
		return out.Experiment.ExperimentID, nil
	}

	var out struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := c.post("experiments/create", map[string]interface{}{"name": name}, &out); err != nil {
		return "", errors.Wrapf(err, "error creating experiment %s", name)
	}
	return out.ExperimentID, nil
}

// StartRun creates a new run under the given experiment.
func (c *Client) StartRun(experimentID string) (*Run, error) {
	var out struct {
		Run struct {
			Info struct {
				RunID string `json:"run_id"`
			} `json:"info"`
		} `json:"run"`
	}
	req := map[string]interface{}{
		"experiment_id": experimentID,
		"start_time":    nowMillis(),
	}
	if err := c.post("runs/create", req, &out); err != nil {
		return nil, errors.Wrapf(err, "error creating run in experiment %s", experimentID)
	}
	return &Run{ID: out.Run.Info.RunID, ExperimentID: experimentID, client: c}, nil
}

// SetTag records a tag on the run.
func (r *Run) SetTag(key, value string) error {
	req := map[string]interface{}{"run_id": r.ID, "key": key, "value": value}
	return errors.Wrapf(r.client.post("runs/set-tag", req, nil),
		"error setting tag %s on run %s", key, r.ID)
}

// LogParam records a scalar parameter on the run.
func (r *Run) LogParam(key, value string) error {
	req := map[string]interface{}{"run_id": r.ID, "key": key, "value": value}
	return errors.Wrapf(r.client.post("runs/log-parameter", req, nil),
		"error logging param %s on run %s", key, r.ID)
}

// LogMetric records a scalar metric on the run at step 0.
func (r *Run) LogMetric(key string, value float64) error {
	req := map[string]interface{}{
		"run_id":    r.ID,
		"key":       key,
		"value":     value,
		"timestamp": nowMillis(),
		"step":      0,
	}
	return errors.Wrapf(r.client.post("runs/log-metric", req, nil),
		"error logging metric %s on run %s", key, r.ID)
}

// LogArtifact uploads the file at localPath to the run's artifact store
// under artifactPath, using the server's proxied artifact endpoint.
func (r *Run) LogArtifact(localPath, artifactPath string) error {
	data, err := ioutil.ReadFile(localPath)
	if err != nil {
		return errors.Wrapf(err, "error reading artifact %s", localPath)
	}

	u := fmt.Sprintf("%s/api/2.0/mlflow-artifacts/artifacts/%s/%s/artifacts/%s/%s",
		r.client.baseURL, r.ExperimentID, r.ID, artifactPath, path.Base(localPath))
	req, err := http.NewRequest("PUT", u, bytes.NewReader(data))
	if err != nil {
		return errors.Wrapf(err, "error building artifact request for %s", localPath)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error uploading artifact %s to run %s", localPath, r.ID)
	}
	if _, err := readBody(resp); err != nil {
		return errors.Wrapf(err, "error uploading artifact %s to run %s", localPath, r.ID)
	}
	return nil
}

// End marks the run terminated with the given status.
func (r *Run) End(status string) error {
	req := map[string]interface{}{
		"run_id":   r.ID,
		"status":   status,
		"end_time": nowMillis(),
	}
	return errors.Wrapf(r.client.post("runs/update", req, nil),
		"error ending run %s", r.ID)
}

// post sends a JSON request to an api/2.0/mlflow endpoint and decodes the
// response into out when out is non-nil.
func (c *Client) post(endpoint string, req, out interface{}) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Wrapf(err, "error encoding request for %s", endpoint)
	}

	u := fmt.Sprintf("%s/api/2.0/mlflow/%s", c.baseURL, endpoint)
	resp, err := c.client.Post(u, "application/json", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrapf(err, "error posting to %s", endpoint)
	}
	body, err := readBody(resp)
	if err != nil {
		return errors.Wrapf(err, "error posting to %s", endpoint)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrapf(err, "error decoding response from %s", endpoint)
		}
	}
	return nil
}

// readBody drains and closes the response body, returning an error for
// non-2xx statuses with a snippet of the body for context.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read response body, status = %s", resp.Status)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return body, errors.Errorf("unexpected status %s: %s", resp.Status, snippet)
	}
	return body, nil
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
