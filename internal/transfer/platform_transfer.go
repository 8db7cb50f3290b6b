package transfer

type MetaTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type MetaPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

type MetaPagesResponse struct {
	Data []MetaPage `json:"data"`
}

type YoutubeChannel struct {
	ID      string `json:"id"`
	Snippet struct {
		Title string `json:"title"`
	} `json:"snippet"`
}

type YoutubeChannelsResponse struct {
	Items []YoutubeChannel `json:"items"`
}
