package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avbuild/roomsync/internal/pkg/room"
)

type fakeRoomService struct {
	statuses map[string]room.Status
	powered  []string
}

func (f *fakeRoomService) Rooms() []room.Status {
	out := make([]room.Status, 0, len(f.statuses))
	for _, s := range f.statuses {
		out = append(out, s)
	}
	return out
}

func (f *fakeRoomService) Room(key string) (room.Status, bool) {
	s, ok := f.statuses[key]
	return s, ok
}

func (f *fakeRoomService) PowerOn(key string) error {
	if _, ok := f.statuses[key]; !ok {
		return errors.New("room not found")
	}
	f.powered = append(f.powered, key+":on")
	return nil
}

func (f *fakeRoomService) PowerOff(key string) error {
	if _, ok := f.statuses[key]; !ok {
		return errors.New("room not found")
	}
	f.powered = append(f.powered, key+":off")
	return nil
}

func newTestServer() (*fakeRoomService, *httptest.Server) {
	svc := &fakeRoomService{statuses: map[string]room.Status{
		"room-1": {Key: "room-1", Name: "Huddle 1", PowerState: "on", CurrentSource: "Set Top Box 1"},
	}}
	return svc, httptest.NewServer(New(svc).Router())
}

func TestListRooms(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/rooms")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	var got []room.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "room-1", got[0].Key)
}

func TestRoomStatus(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/rooms/room-1")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	var got room.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "Set Top Box 1", got.CurrentSource)
}

func TestRoomStatusNotFound(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	res, err := http.Get(ts.URL + "/api/rooms/nope")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestRoomPower(t *testing.T) {
	svc, ts := newTestServer()
	defer ts.Close()

	res, err := http.Post(ts.URL+"/api/rooms/room-1/power/on", "", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Post(ts.URL+"/api/rooms/room-1/power/off", "", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	assert.Equal(t, []string{"room-1:on", "room-1:off"}, svc.powered)
}

func TestRoomPowerBadState(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	res, err := http.Post(ts.URL+"/api/rooms/room-1/power/toggle", "", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRoomPowerUnknownRoom(t *testing.T) {
	_, ts := newTestServer()
	defer ts.Close()

	res, err := http.Post(ts.URL+"/api/rooms/nope/power/on", "", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
