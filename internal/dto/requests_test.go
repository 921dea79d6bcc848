package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoints_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		body string
		want Points
	}{
		{`{"pointsValue": 10}`, 10},
		{`{"pointsValue": "15"}`, 15},
		{`{"pointsValue": 7.9}`, 7},
		{`{"pointsValue": null}`, 0},
		{`{"pointsValue": ""}`, 0},
		{`{}`, 0},
	}
	for _, tc := range cases {
		var req CreateEventRequest
		require.NoError(t, json.Unmarshal([]byte(tc.body), &req), tc.body)
		assert.Equal(t, tc.want, req.PointsValue, tc.body)
	}

	var req CreateEventRequest
	assert.Error(t, json.Unmarshal([]byte(`{"pointsValue": "ten"}`), &req))
}

func TestAttendanceResponse_FlattensRecord(t *testing.T) {
	resp := AttendanceResponse{EventName: "Seminar", AttendeeName: "J Doe", AttendeeEmail: "jdoe@caltech.edu"}
	resp.ID = "rec-1"
	resp.PointsAwarded = 10

	b, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "rec-1", out["id"])
	assert.Equal(t, float64(10), out["pointsAwarded"])
	assert.Equal(t, "Seminar", out["eventName"])
	assert.Equal(t, "jdoe@caltech.edu", out["attendeeEmail"])
}
