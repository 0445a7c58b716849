package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Config struct {
	FusionCfg     *FusionConfig
	MqttCfg       *MqttConfig
	DatabaseURL   string
	MigrationsDir string
	RoomFile      string
	AssetFile     string
	HTTPAddr      string
	LogLevel      string
}

type FusionConfig struct {
	Host string
	Ssl  bool
}

type MqttConfig struct {
	Host     string
	Username string
	Password string
}

// DeviceRole classifies a configured device for slot-block assignment.
type DeviceRole string

const (
	RoleDisplay    DeviceRole = "display"
	RoleCodec      DeviceRole = "codec"
	RoleSetTopBox  DeviceRole = "settopbox"
	RoleDiscPlayer DeviceRole = "discplayer"
	RoleLaptop     DeviceRole = "laptop"
)

// DeviceConfig describes one configured device. UID is the persistent identity
// used for asset-slot allocation; it survives edits to Key and Name.
type DeviceConfig struct {
	Key        string     `json:"key"`
	UID        string     `json:"uid"`
	Name       string     `json:"name"`
	Role       DeviceRole `json:"role"`
	WarmupMs   int        `json:"warmup_ms"`
	CooldownMs int        `json:"cooldown_ms"`
	Address    string     `json:"address,omitempty"`
	Port       int        `json:"port,omitempty"`
}

func (d DeviceConfig) WarmupTime() time.Duration {
	return time.Duration(d.WarmupMs) * time.Millisecond
}

func (d DeviceConfig) CooldownTime() time.Duration {
	return time.Duration(d.CooldownMs) * time.Millisecond
}

// SourceEntry maps an ordered source-list position to a configured device key.
type SourceEntry struct {
	Key       string `json:"key"`
	SourceKey string `json:"source_key"`
}

type RoomConfig struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	DisplayKey    string   `json:"display_key"`
	CodecKey      string   `json:"codec_key,omitempty"`
	SourceListKey string   `json:"source_list_key"`
	DeviceKeys    []string `json:"device_keys"`
}

// File is the room configuration document loaded at startup.
type File struct {
	Devices     []DeviceConfig           `json:"devices"`
	SourceLists map[string][]SourceEntry `json:"source_lists"`
	Rooms       []RoomConfig             `json:"rooms"`
}

// Device returns the configured device for key.
func (f *File) Device(key string) (DeviceConfig, bool) {
	for _, d := range f.Devices {
		if d.Key == key {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// SourceList returns the ordered entries for a named source list.
func (f *File) SourceList(key string) ([]SourceEntry, bool) {
	entries, ok := f.SourceLists[key]
	return entries, ok
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	seen := map[string]string{}
	for _, d := range f.Devices {
		if d.UID == "" {
			return nil, fmt.Errorf("device %q has no uid", d.Key)
		}
		if other, dup := seen[d.UID]; dup {
			return nil, fmt.Errorf("devices %q and %q share uid %q", other, d.Key, d.UID)
		}
		seen[d.UID] = d.Key
	}
	return &f, nil
}
