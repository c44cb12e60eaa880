package bridge

// family is one coherent set of bridge paths.
type family struct {
	Name           string
	Accounts       string
	SearchChats    string
	SearchMessages string
	SendMessage    string
	DownloadAsset  string
	// DownloadAttachment addresses an attachment by chat, message and index.
	// Empty when the family has no such endpoint.
	DownloadAttachment string
}

// families is tried in order during discovery.
var families = []family{
	{
		Name:           "v1",
		Accounts:       "/v1/accounts",
		SearchChats:    "/v1/chats/search",
		SearchMessages: "/v1/messages/search",
		SendMessage:    "/v1/messages",
		DownloadAsset:  "/v1/assets/download",
	},
	{
		Name:               "v0",
		Accounts:           "/v0/get-accounts",
		SearchChats:        "/v0/search-chats",
		SearchMessages:     "/v0/search-messages",
		SendMessage:        "/v0/send-message",
		DownloadAsset:      "/v0/download-asset",
		DownloadAttachment: "/v0/download-attachment",
	},
}
