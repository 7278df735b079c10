package messages

import (
	"encoding/json"
	"fmt"

	"followscan/pkg/models"
)

// Envelope is the JSON wire form of a Message
type Envelope struct {
	Type     Type            `json:"type"`
	Platform models.Platform `json:"platform,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	// Partial is only set on SCAN_COMPLETE of a stopped scan
	Partial bool `json:"partial,omitempty"`
}

type startScanData struct {
	StartIndex *int            `json:"startIndex,omitempty"`
	Limit      *int            `json:"limit,omitempty"`
	ScanMode   models.ScanMode `json:"scanMode,omitempty"`
	Location   string          `json:"location,omitempty"`
}

type scanErrorData struct {
	Error string `json:"error"`
}

// Encode marshals msg into its envelope form
func Encode(msg Message) ([]byte, error) {
	env := Envelope{Type: msg.Type(), Platform: msg.Target()}

	var data interface{}
	switch m := msg.(type) {
	case StartScan:
		d := startScanData{StartIndex: m.StartIndex, Limit: m.Limit, ScanMode: m.ScanMode, Location: m.Location}
		if d != (startScanData{}) {
			data = d
		}
	case ScanProgress:
		data = m.Progress
	case AccountFound:
		data = m.Account
	case ScanComplete:
		data = nonNil(m.Accounts)
		env.Partial = m.Partial
	case ScanError:
		data = scanErrorData{Error: m.Error}
	case AccountsData:
		data = nonNil(m.Accounts)
	case StopScan, GetAccounts, ClearData:
	default:
		return nil, fmt.Errorf("unknown message %T", msg)
	}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s data: %w", env.Type, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// Decode parses an envelope into its message variant
func Decode(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env.Message()
}

// Message converts the envelope into its message variant
func (env Envelope) Message() (Message, error) {
	if env.Platform != "" {
		p, err := models.ParsePlatform(string(env.Platform))
		if err != nil {
			return nil, err
		}
		env.Platform = p
	}

	switch env.Type {
	case TypeStartScan:
		var d startScanData
		if err := env.decodeData(&d); err != nil {
			return nil, err
		}
		if d.ScanMode != "" {
			mode, err := models.ParseScanMode(string(d.ScanMode))
			if err != nil {
				return nil, err
			}
			d.ScanMode = mode
		}
		if err := env.requirePlatform(); err != nil {
			return nil, err
		}
		return StartScan{Platform: env.Platform, StartIndex: d.StartIndex, Limit: d.Limit, ScanMode: d.ScanMode, Location: d.Location}, nil
	case TypeStopScan:
		if err := env.requirePlatform(); err != nil {
			return nil, err
		}
		return StopScan{Platform: env.Platform}, nil
	case TypeScanProgress:
		var p models.ScanProgress
		if err := env.decodeData(&p); err != nil {
			return nil, err
		}
		if p.Platform == "" {
			p.Platform = env.Platform
		}
		return ScanProgress{Progress: p}, nil
	case TypeAccountFound:
		var a models.Account
		if err := env.decodeData(&a); err != nil {
			return nil, err
		}
		return AccountFound{Platform: env.Platform, Account: a}, nil
	case TypeScanComplete:
		var accounts []models.Account
		if err := env.decodeData(&accounts); err != nil {
			return nil, err
		}
		return ScanComplete{Platform: env.Platform, Accounts: accounts, Partial: env.Partial}, nil
	case TypeScanError:
		var d scanErrorData
		if err := env.decodeData(&d); err != nil {
			return nil, err
		}
		return ScanError{Platform: env.Platform, Error: d.Error}, nil
	case TypeGetAccounts:
		return GetAccounts{Platform: env.Platform}, nil
	case TypeAccountsData:
		var accounts []models.Account
		if err := env.decodeData(&accounts); err != nil {
			return nil, err
		}
		return AccountsData{Platform: env.Platform, Accounts: accounts}, nil
	case TypeClearData:
		return ClearData{Platform: env.Platform}, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

func (env Envelope) decodeData(v interface{}) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("decode %s data: %w", env.Type, err)
	}
	return nil
}

func (env Envelope) requirePlatform() error {
	if env.Platform == "" {
		return fmt.Errorf("%s requires a platform", env.Type)
	}
	return nil
}

// MarshalJSON encodes the response in its wire shape
func (r Response) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 2)
	if r.Success {
		out["success"] = true
	}
	if r.HasAccounts || len(r.Accounts) > 0 {
		out["accounts"] = nonNil(r.Accounts)
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	return json.Marshal(out)
}

func nonNil(accounts []models.Account) []models.Account {
	if accounts == nil {
		return []models.Account{}
	}
	return accounts
}
