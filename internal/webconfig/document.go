package webconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Document is the settings object sent to the web client. Pointer fields are
// conditional and left out of the JSON when nil.
type Document struct {
	SoundsPath            string   `json:"sounds_path"`
	PlaySounds            bool     `json:"play_sounds"`
	NotificationIcon      string   `json:"notification_icon"`
	AutoAway              int      `json:"auto_away"`
	NotifyAllRoomMessages []string `json:"notify_all_room_messages"`
	I18n                  string   `json:"i18n"`

	// Exactly one of LockedDomain and DefaultDomain is set.
	LockedDomain       *string `json:"locked_domain,omitempty"`
	DefaultDomain      *string `json:"default_domain,omitempty"`
	RegistrationDomain *string `json:"registration_domain,omitempty"`
	AllowRegistration  *bool   `json:"allow_registration,omitempty"`

	DomainPlaceholder        string   `json:"domain_placeholder"`
	BoshServiceURL           string   `json:"bosh_service_url"`
	LogLevel                 string   `json:"loglevel"`
	ViewMode                 string   `json:"view_mode"`
	WhitelistedPlugins       []string `json:"whitelisted_plugins"`
	BlacklistedPlugins       []string `json:"blacklisted_plugins"`
	AutoReconnect            bool     `json:"auto_reconnect"`
	MessageCarbons           bool     `json:"message_carbons"`
	MessageArchiving         string   `json:"message_archiving"`
	RosterGroups             bool     `json:"roster_groups"`
	ShowMessageLoadAnimation bool     `json:"show_message_load_animation"`

	AutoFocus                      bool   `json:"auto_focus"`
	ClearMessagesOnReconnection    bool   `json:"clear_messages_on_reconnection"`
	EnableSmacks                   bool   `json:"enable_smacks"`
	MessageLimit                   int    `json:"message_limit"`
	MucFetchMembers                bool   `json:"muc_fetch_members"`
	MucMentionAutocompleteMinChars int    `json:"muc_mention_autocomplete_min_chars"`
	MucShowJoinLeaveStatus         bool   `json:"muc_show_join_leave_status"`
	Singleton                      bool   `json:"singleton"`
	AllowMessageCorrections        string `json:"allow_message_corrections"`
	AssetsPath                     string `json:"assets_path"`
}

// Domain returns the domain value regardless of which key carries it.
func (d *Document) Domain() string {
	if d.LockedDomain != nil {
		return *d.LockedDomain
	}
	if d.DefaultDomain != nil {
		return *d.DefaultDomain
	}
	return ""
}

// Marshal encodes the document as JSON indented with two spaces.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode web config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTo writes the encoded document to w in full. Errors from w are
// returned as they are.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	body, err := d.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(body)
	return int64(n), err
}
