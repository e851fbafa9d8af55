package webconfig

import (
	"fmt"
	"strings"

	"github.com/angeloszaimis/inverse-config/internal/identity"
	"github.com/angeloszaimis/inverse-config/internal/language"
	"github.com/angeloszaimis/inverse-config/internal/properties"
)

// DefaultContextRoot is the path under which the web client is served.
const DefaultContextRoot = "inverse"

// RequestInfo holds the address a client used to reach the server. Host is
// expected in URL form, i.e. IPv6 literals in brackets.
type RequestInfo struct {
	Scheme string
	Host   string
	Port   int
}

// EndpointURL returns the BOSH endpoint for the given request address.
func EndpointURL(req RequestInfo) string {
	return fmt.Sprintf("%s://%s:%d/http-bind/", req.Scheme, req.Host, req.Port)
}

// Assembler builds web client configuration documents. It holds no state of
// its own; every Build reads the store again.
type Assembler struct {
	store       properties.Store
	identity    identity.Provider
	language    language.Resolver
	contextRoot string
}

func NewAssembler(store properties.Store, id identity.Provider, lang language.Resolver, contextRoot string) *Assembler {
	contextRoot = strings.Trim(contextRoot, "/")
	if contextRoot == "" {
		contextRoot = DefaultContextRoot
	}

	return &Assembler{
		store:       store,
		identity:    id,
		language:    lang,
		contextRoot: contextRoot,
	}
}

// ContextRoot returns the path prefix of the web client, without slashes.
func (a *Assembler) ContextRoot() string {
	return a.contextRoot
}

func (a *Assembler) path(rel string) string {
	return "/" + a.contextRoot + "/" + rel
}

// Build assembles the document for one request.
func (a *Assembler) Build(req RequestInfo) Document {
	inbandEnabled := a.identity.InbandRegistrationEnabled()
	domain := a.store.String(Key(SettingDefaultDomain), a.identity.Domain())
	locked := a.store.Bool(Key(SettingLockedDomain), DefaultLockedDomain)

	doc := Document{
		SoundsPath:            a.path("dist/sounds/"),
		PlaySounds:            a.store.Bool(Key(SettingPlaySounds), DefaultPlaySounds),
		NotificationIcon:      a.path("css/images/logo/conversejs-filled.svg"),
		AutoAway:              fixedAutoAway,
		NotifyAllRoomMessages: []string{},
		I18n:                  a.language.Language().Code,
	}

	if locked {
		doc.LockedDomain = &domain
	} else {
		doc.DefaultDomain = &domain
	}

	if inbandEnabled {
		doc.RegistrationDomain = &domain
	}

	// Without in-band registration on the only domain the client may use,
	// the registration tab is useless.
	if !inbandEnabled && locked {
		allow := false
		doc.AllowRegistration = &allow
	}

	doc.DomainPlaceholder = domain
	doc.BoshServiceURL = EndpointURL(req)
	doc.LogLevel = a.store.String(Key(SettingLogLevel), DefaultLogLevel)
	doc.ViewMode = fixedViewMode
	doc.WhitelistedPlugins = append([]string(nil), fixedWhitelistedPlugins...)
	doc.BlacklistedPlugins = append([]string(nil), fixedBlacklistedPlugins...)
	doc.AutoReconnect = fixedAutoReconnect
	doc.MessageCarbons = fixedMessageCarbons
	doc.MessageArchiving = fixedMessageArchiving
	doc.RosterGroups = fixedRosterGroups
	doc.ShowMessageLoadAnimation = fixedShowMessageLoadAnimation

	doc.AutoFocus = a.store.Bool(Key(SettingAutoFocus), DefaultAutoFocus)
	doc.ClearMessagesOnReconnection = a.store.Bool(Key(SettingClearMessagesOnReconnection), DefaultClearMessagesOnReconnection)
	doc.EnableSmacks = a.store.Bool(Key(SettingEnableSmacks), DefaultEnableSmacks)
	doc.MessageLimit = a.store.Int(Key(SettingMessageLimit), DefaultMessageLimit)
	doc.MucFetchMembers = a.store.Bool(Key(SettingMucFetchMembers), DefaultMucFetchMembers)
	doc.MucMentionAutocompleteMinChars = a.store.Int(Key(SettingMucMentionAutocompleteMinChars), DefaultMucMentionAutocompleteMinChars)
	doc.MucShowJoinLeaveStatus = a.store.Bool(Key(SettingMucShowJoinLeaveStatus), DefaultMucShowJoinLeaveStatus)
	doc.Singleton = a.store.Bool(Key(SettingSingleton), DefaultSingleton)
	doc.AllowMessageCorrections = a.store.String(Key(SettingAllowMessageCorrections), DefaultAllowMessageCorrections)
	doc.AssetsPath = a.store.String(Key(SettingAssetsPath), a.path("dist/"))

	return doc
}
