// Package config persists the client settings in utox_save.ini and
// derives from them the Snapshot the core reads at start.
package config

import (
	"github.com/opd-ai/utox/bus"
)

const (
	// FileName is the settings file inside the profile directory.
	FileName = "utox_save.ini"
	// SaveVersion is written to general.save_version.
	SaveVersion = 3

	// MainWidth and MainHeight are the smallest main window size.
	MainWidth  = 750
	MainHeight = 500

	// DefaultScale is the scale of a fresh profile. A stored scale below
	// MinScale falls back to LowScale.
	DefaultScale = 11
	LowScale     = 10
	MinScale     = 5
	MaxScale     = 30

	// DefaultVideoFPS replaces an unset frame rate.
	DefaultVideoFPS = 25
)

// GroupNotify selects when group messages raise a notification.
type GroupNotify int

const (
	GroupNotifyAlways GroupNotify = iota
	GroupNotifyMentions
	GroupNotifyNever
)

// Settings is the content of the settings file, one struct per section.
type Settings struct {
	General       GeneralSettings      `mapstructure:"general"`
	Interface     InterfaceSettings    `mapstructure:"interface"`
	AV            AVSettings           `mapstructure:"av"`
	Notifications NotificationSettings `mapstructure:"notifications"`
	Advanced      AdvancedSettings     `mapstructure:"advanced"`
}

// GeneralSettings holds the [general] section.
type GeneralSettings struct {
	SaveVersion     int    `mapstructure:"save_version"`
	LastVersion     uint32 `mapstructure:"utox_last_version"`
	SendVersion     bool   `mapstructure:"send_version"`
	UpdateToDevelop bool   `mapstructure:"update_to_develop"`
}

// InterfaceSettings holds the [interface] section.
type InterfaceSettings struct {
	Language          int  `mapstructure:"language"`
	WindowX           int  `mapstructure:"window_x"`
	WindowY           int  `mapstructure:"window_y"`
	WindowWidth       int  `mapstructure:"window_width"`
	WindowHeight      int  `mapstructure:"window_height"`
	Theme             int  `mapstructure:"theme"`
	Scale             int  `mapstructure:"scale"`
	LoggingEnabled    bool `mapstructure:"logging_enabled"`
	CloseToTray       bool `mapstructure:"close_to_tray"`
	StartInTray       bool `mapstructure:"start_in_tray"`
	AutoStartup       bool `mapstructure:"auto_startup"`
	UseMiniFlist      bool `mapstructure:"use_mini_flist"`
	Filter            bool `mapstructure:"filter"`
	MagicFlistEnabled bool `mapstructure:"magic_flist_enabled"`
}

// AVSettings holds the [av] section.
type AVSettings struct {
	PushToTalk            bool   `mapstructure:"push_to_talk"`
	AudioFilteringEnabled bool   `mapstructure:"audio_filtering_enabled"`
	AudioDeviceIn         uint32 `mapstructure:"audio_device_in"`
	AudioDeviceOut        uint32 `mapstructure:"audio_device_out"`
	VideoDevice           uint32 `mapstructure:"video_device"`
	VideoFPS              uint32 `mapstructure:"video_fps"`
	AudioPreview          bool   `mapstructure:"audio_preview"`
	VideoPreview          bool   `mapstructure:"video_preview"`
}

// NotificationSettings holds the [notifications] section.
type NotificationSettings struct {
	AudibleNotificationsEnabled bool        `mapstructure:"audible_notifications_enabled"`
	StatusNotifications         bool        `mapstructure:"status_notifications"`
	NoTypingNotifications       bool        `mapstructure:"no_typing_notifications"`
	GroupNotifications          GroupNotify `mapstructure:"group_notifications"`
}

// AdvancedSettings holds the [advanced] section.
type AdvancedSettings struct {
	EnableIPv6      bool   `mapstructure:"enableipv6"`
	DisableUDP      bool   `mapstructure:"disableudp"`
	ProxyEnable     bool   `mapstructure:"proxyenable"`
	ProxyPort       int    `mapstructure:"proxy_port"`
	ProxyIP         string `mapstructure:"proxy_ip"`
	ForceProxy      bool   `mapstructure:"force_proxy"`
	AutoUpdate      bool   `mapstructure:"auto_update"`
	MailboxMode     string `mapstructure:"mailbox_mode"`
	MailboxCapacity int    `mapstructure:"mailbox_capacity"`
}

// DefaultSettings returns the settings of a fresh profile.
func DefaultSettings() *Settings {
	return &Settings{
		General: GeneralSettings{
			SaveVersion: SaveVersion,
		},
		Interface: InterfaceSettings{
			WindowWidth:    MainWidth,
			WindowHeight:   MainHeight,
			Scale:          DefaultScale,
			LoggingEnabled: true,
		},
		AV: AVSettings{
			AudioFilteringEnabled: true,
			VideoFPS:              DefaultVideoFPS,
		},
		Notifications: NotificationSettings{
			AudibleNotificationsEnabled: true,
			StatusNotifications:         true,
			GroupNotifications:          GroupNotifyAlways,
		},
		Advanced: AdvancedSettings{
			EnableIPv6:      true,
			MailboxMode:     bus.ModeQueue.String(),
			MailboxCapacity: bus.DefaultQueueCapacity,
		},
	}
}

// Normalize clamps values a hand edited file may carry out of range.
func (s *Settings) Normalize() {
	switch {
	case s.Interface.Scale > MaxScale:
		s.Interface.Scale = MaxScale
	case s.Interface.Scale < MinScale:
		s.Interface.Scale = LowScale
	}
	if s.Interface.WindowWidth < MainWidth {
		s.Interface.WindowWidth = MainWidth
	}
	if s.Interface.WindowHeight < MainHeight {
		s.Interface.WindowHeight = MainHeight
	}
	if s.AV.VideoFPS == 0 {
		s.AV.VideoFPS = DefaultVideoFPS
	}
	if s.Notifications.GroupNotifications < GroupNotifyAlways || s.Notifications.GroupNotifications > GroupNotifyNever {
		s.Notifications.GroupNotifications = GroupNotifyAlways
	}
	s.Advanced.MailboxMode = bus.ParseMailboxMode(s.Advanced.MailboxMode).String()
	if s.Advanced.MailboxCapacity < 1 {
		s.Advanced.MailboxCapacity = bus.DefaultQueueCapacity
	}
}

// Snapshot is the part of the settings the workers act on at start.
type Snapshot struct {
	AudioInputDevice  uint32
	AudioOutputDevice uint32
	VideoDevice       uint32
	PushToTalk        bool
	AudioPreview      bool
	VideoPreview      bool
	AudioFiltering    bool
	VideoFPS          uint32
	RingtoneEnabled   bool
	SendTypingStatus  bool
	Mailbox           bus.MailboxOptions
}

// Snapshot extracts the values read by the core.
func (s *Settings) Snapshot() Snapshot {
	return Snapshot{
		AudioInputDevice:  s.AV.AudioDeviceIn,
		AudioOutputDevice: s.AV.AudioDeviceOut,
		VideoDevice:       s.AV.VideoDevice,
		PushToTalk:        s.AV.PushToTalk,
		AudioPreview:      s.AV.AudioPreview,
		VideoPreview:      s.AV.VideoPreview,
		AudioFiltering:    s.AV.AudioFilteringEnabled,
		VideoFPS:          s.AV.VideoFPS,
		RingtoneEnabled:   s.Notifications.AudibleNotificationsEnabled,
		SendTypingStatus:  !s.Notifications.NoTypingNotifications,
		Mailbox: bus.MailboxOptions{
			Mode:     bus.ParseMailboxMode(s.Advanced.MailboxMode),
			Capacity: s.Advanced.MailboxCapacity,
			Overflow: bus.DropOldest,
		},
	}
}

// Apply writes the values of snap back into the settings.
func (s *Settings) Apply(snap Snapshot) {
	s.AV.AudioDeviceIn = snap.AudioInputDevice
	s.AV.AudioDeviceOut = snap.AudioOutputDevice
	s.AV.VideoDevice = snap.VideoDevice
	s.AV.PushToTalk = snap.PushToTalk
	s.AV.AudioPreview = snap.AudioPreview
	s.AV.VideoPreview = snap.VideoPreview
	s.AV.AudioFilteringEnabled = snap.AudioFiltering
	s.AV.VideoFPS = snap.VideoFPS
	s.Notifications.AudibleNotificationsEnabled = snap.RingtoneEnabled
	s.Notifications.NoTypingNotifications = !snap.SendTypingStatus
	s.Advanced.MailboxMode = snap.Mailbox.Mode.String()
	s.Advanced.MailboxCapacity = snap.Mailbox.Capacity
}
