package messages

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"followscan/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestStartScanOptionsDefaults(t *testing.T) {
	opts := StartScan{Platform: models.PlatformInstagram}.Options()
	assert.Equal(t, 0, opts.StartIndex)
	assert.Equal(t, 100, opts.Limit)
	assert.Equal(t, models.ScanModeFast, opts.Mode)

	opts = StartScan{StartIndex: intPtr(200), Limit: intPtr(50), ScanMode: models.ScanModeFull}.Options()
	assert.Equal(t, 200, opts.StartIndex)
	assert.Equal(t, 50, opts.Limit)
	assert.Equal(t, models.ScanModeFull, opts.Mode)
}

func TestDecodeStartScan(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"START_SCAN","platform":"x","data":{"startIndex":100,"scanMode":"full","location":"https://x.com/me/following"}}`))
	require.NoError(t, err)

	start, ok := msg.(StartScan)
	require.True(t, ok)
	assert.Equal(t, models.PlatformTwitter, start.Platform)
	require.NotNil(t, start.StartIndex)
	assert.Equal(t, 100, *start.StartIndex)
	assert.Nil(t, start.Limit)
	assert.Equal(t, "https://x.com/me/following", start.Location)
	assert.Equal(t, 100, start.Options().Limit)
}

func TestDecodeStartScanWithoutData(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"START_SCAN","platform":"threads"}`))
	require.NoError(t, err)
	assert.Equal(t, models.DefaultScanOptions(), msg.(StartScan).Options())
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"bad json":         `{`,
		"unknown type":     `{"type":"PING"}`,
		"unknown platform": `{"type":"STOP_SCAN","platform":"myspace"}`,
		"missing platform": `{"type":"START_SCAN"}`,
		"bad mode":         `{"type":"START_SCAN","platform":"instagram","data":{"scanMode":"turbo"}}`,
		"bad payload":      `{"type":"SCAN_COMPLETE","platform":"instagram","data":{"id":1}}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestEncodeScanCompleteShape(t *testing.T) {
	last := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	raw, err := Encode(ScanComplete{
		Platform: models.PlatformInstagram,
		Accounts: []models.Account{{ID: "1", Username: "u1", Platform: models.PlatformInstagram, LastPostDate: &last}},
		Partial:  true,
	})
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.Equal(t, "SCAN_COMPLETE", wire["type"])
	assert.Equal(t, "instagram", wire["platform"])
	assert.Equal(t, true, wire["partial"])
	data := wire["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "2023-01-02T03:04:05Z", data[0].(map[string]interface{})["lastPostDate"])

	back, err := Decode(raw)
	require.NoError(t, err)
	complete := back.(ScanComplete)
	assert.True(t, complete.Partial)
	assert.True(t, last.Equal(*complete.Accounts[0].LastPostDate))
}

func TestEncodeEmptyListsAsArrays(t *testing.T) {
	raw, err := Encode(AccountsData{Platform: models.PlatformThreads})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ACCOUNTS_DATA","platform":"threads","data":[]}`, string(raw))

	raw, err = Encode(ClearData{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"CLEAR_DATA"}`, string(raw))
}

func TestEncodeScanError(t *testing.T) {
	raw, err := Encode(ScanError{Platform: models.PlatformTwitter, Error: "Open x.com before scanning"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"SCAN_ERROR","platform":"twitter","data":{"error":"Open x.com before scanning"}}`, string(raw))
}

func TestResponseJSON(t *testing.T) {
	raw, err := json.Marshal(OK())
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(raw))

	raw, err = json.Marshal(WithAccounts(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"accounts":[]}`, string(raw))

	raw, err = json.Marshal(Failed("Unknown message type"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Unknown message type"}`, string(raw))
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(10)
	defer cancel()

	for i := 1; i <= 3; i++ {
		bus.Publish(ScanProgress{Progress: models.ScanProgress{Current: i}})
	}
	for i := 1; i <= 3; i++ {
		msg := <-ch
		assert.Equal(t, i, msg.(ScanProgress).Progress.Current)
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	_, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(StopScan{})
	bus.Publish(StopScan{})
	assert.Equal(t, uint64(1), bus.Dropped())
}

func TestBusWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NotPanics(t, func() { bus.Publish(ClearData{}) })
	assert.Zero(t, bus.Dropped())
}

func TestBusCancel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	assert.Equal(t, 1, bus.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, bus.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

func TestBusConcurrentPublishAndCancel(t *testing.T) {
	bus := NewBus()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		_, cancel := bus.Subscribe(4)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(StopScan{})
			}
		}()
		go func() {
			defer wg.Done()
			cancel()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, bus.Subscribers())
}
