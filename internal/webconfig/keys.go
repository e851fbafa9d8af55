package webconfig

// KeyPrefix is prepended to every setting name to form its property key.
const KeyPrefix = "inverse.config."

// Setting names. The property key is KeyPrefix + name.
const (
	SettingDefaultDomain                  = "default_domain"
	SettingLockedDomain                   = "locked_domain"
	SettingLogLevel                       = "loglevel"
	SettingPlaySounds                     = "play_sounds"
	SettingAutoFocus                      = "auto_config"
	SettingClearMessagesOnReconnection    = "clear_messages_on_reconnection"
	SettingEnableSmacks                   = "enable_smacks"
	SettingMessageLimit                   = "message_limit"
	SettingMucFetchMembers                = "muc_fetch_members"
	SettingMucMentionAutocompleteMinChars = "muc_mention_autocomplete_min_chars"
	SettingMucShowJoinLeaveStatus         = "muc_show_join_leave_status"
	SettingSingleton                      = "singleton"
	SettingAllowMessageCorrections        = "allow_message_corrections"
	SettingAssetsPath                     = "assets_path"
)

// Defaults for settings that are not derived from the server.
const (
	DefaultLockedDomain                   = false
	DefaultLogLevel                       = "info"
	DefaultPlaySounds                     = false
	DefaultAutoFocus                      = true
	DefaultClearMessagesOnReconnection    = false
	DefaultEnableSmacks                   = false
	DefaultMessageLimit                   = 0
	DefaultMucFetchMembers                = true
	DefaultMucMentionAutocompleteMinChars = 0
	DefaultMucShowJoinLeaveStatus         = true
	DefaultSingleton                      = false
	DefaultAllowMessageCorrections        = "all"
)

// Fixed client settings.
const (
	fixedAutoAway                 = 300
	fixedViewMode                 = "fullscreen"
	fixedAutoReconnect            = true
	fixedMessageCarbons           = true
	fixedMessageArchiving         = "always"
	fixedRosterGroups             = true
	fixedShowMessageLoadAnimation = false
)

var (
	fixedWhitelistedPlugins = []string{"converse-singleton", "converse-inverse"}
	fixedBlacklistedPlugins = []string{"converse-minimize", "converse-dragresize"}
)

// Key returns the property key of a setting.
func Key(setting string) string {
	return KeyPrefix + setting
}
