package model

// Accessible roles as reported by the Java Access Bridge (en_US role
// strings). The locator path language validates role steps against this set.
const (
	RoleAlert         = "alert"
	RoleCanvas        = "canvas"
	RoleCheckBox      = "check box"
	RoleColorChooser  = "color chooser"
	RoleComboBox      = "combo box"
	RoleDesktopPane   = "desktop pane"
	RoleDialog        = "dialog"
	RoleFileChooser   = "file chooser"
	RoleFiller        = "filler"
	RoleFrame         = "frame"
	RoleGlassPane     = "glass pane"
	RoleInternalFrame = "internal frame"
	RoleLabel         = "label"
	RoleLayeredPane   = "layered pane"
	RoleList          = "list"
	RoleListItem      = "list item"
	RoleMenu          = "menu"
	RoleMenuBar       = "menu bar"
	RoleMenuItem      = "menu item"
	RolePageTab       = "page tab"
	RolePageTabList   = "page tab list"
	RolePanel         = "panel"
	RolePasswordText  = "password text"
	RolePopupMenu     = "popup menu"
	RoleProgressBar   = "progress bar"
	RolePushButton    = "push button"
	RoleRadioButton   = "radio button"
	RoleRootPane      = "root pane"
	RoleScrollBar     = "scroll bar"
	RoleScrollPane    = "scroll pane"
	RoleSeparator     = "separator"
	RoleSlider        = "slider"
	RoleSpinBox       = "spinbox"
	RoleSplitPane     = "split pane"
	RoleStatusBar     = "status bar"
	RoleTable         = "table"
	RoleText          = "text"
	RoleToggleButton  = "toggle button"
	RoleToolBar       = "tool bar"
	RoleToolTip       = "tool tip"
	RoleTree          = "tree"
	RoleViewport      = "viewport"
	RoleWindow        = "window"
	RoleUnknown       = "unknown"
)

var knownRoles = map[string]bool{
	RoleAlert: true, RoleCanvas: true, RoleCheckBox: true, RoleColorChooser: true,
	RoleComboBox: true, RoleDesktopPane: true, RoleDialog: true, RoleFileChooser: true,
	RoleFiller: true, RoleFrame: true, RoleGlassPane: true, RoleInternalFrame: true, RoleLabel: true,
	RoleLayeredPane: true, RoleList: true, RoleListItem: true, RoleMenu: true,
	RoleMenuBar: true, RoleMenuItem: true, RolePageTab: true, RolePageTabList: true,
	RolePanel: true, RolePasswordText: true, RolePopupMenu: true, RoleProgressBar: true,
	RolePushButton: true, RoleRadioButton: true, RoleRootPane: true, RoleScrollBar: true,
	RoleScrollPane: true, RoleSeparator: true, RoleSlider: true, RoleSpinBox: true,
	RoleSplitPane: true, RoleStatusBar: true, RoleTable: true, RoleText: true,
	RoleToggleButton: true, RoleToolBar: true, RoleToolTip: true, RoleTree: true,
	RoleViewport: true, RoleWindow: true, RoleUnknown: true,
}

// IsKnownRole reports whether role is a recognized accessible role string.
func IsKnownRole(role string) bool {
	return knownRoles[role]
}
