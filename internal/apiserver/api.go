package apiserver

import (
	"bytes"
	"encoding/json"
)

// Camera is one entry of GET /api/cameras.
type Camera struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// CameraList is the GET /api/cameras response.
type CameraList struct {
	Cameras []Camera `json:"cameras"`
}

// StartRequest is the POST /api/monitoring/start body. An empty CameraID
// starts every camera.
type StartRequest struct {
	CameraID CameraID `json:"camera_id"`
}

// StopRequest is the optional POST /api/monitoring/stop body. An empty
// CameraID stops every camera.
type StopRequest struct {
	CameraID CameraID `json:"camera_id"`
}

// CameraID accepts both "0" and 0; the original front end sent numeric
// camera indexes.
type CameraID string

func (id *CameraID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = CameraID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = CameraID(n.String())
	return nil
}

// Result answers start and stop requests.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Status is the GET /api/monitoring/status response.
type Status struct {
	Monitoring bool     `json:"monitoring"`
	Sources    []string `json:"sources"`
	Viewers    int      `json:"viewers"`
}

// ErrorResponse represents json error structure
type ErrorResponse struct {
	Error string `json:"error"`
}
