package auth

// Action constants for access policy checks. Every protected route declares one.

// Game listing and bookmarks
const (
	GamesPage   = "games:page"
	GamesDelete = "games:delete"
	GamesSave   = "games:save"
	GamesUnsave = "games:unsave"
	GamesSaved  = "games:saved"
)

// Interactive and static sessions
const (
	SessionCreate   = "session:create"
	SessionInitiate = "session:initiate"
	SessionJoin     = "session:join"
	SessionFreeKey  = "session:free-key"
	SessionPersist  = "session:persist"

	StaticInitiate = "static:initiate"
	StaticPersist  = "static:persist"
)

// Users and admin
const (
	UsersMe     = "users:me"
	UsersList   = "users:list"
	UsersPatch  = "users:patch"
	UsersStats  = "users:stats"
	PopupUpdate = "popup:update"
)

// Webhooks
const (
	WebhookAuth0 = "webhook:auth0"
)
