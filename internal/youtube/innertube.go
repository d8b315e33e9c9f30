// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package youtube

// Innertube is the JSON API behind the web player. The WEB client surface is
// the only one that exposes caption tracks without a signed player token.
const (
	innertubeBase     = "https://www.youtube.com/youtubei/v1"
	webClientName     = "WEB"
	webClientVersion  = "2.20250222.10.00"
	webClientNameID   = "1"
	maxInnertubeBody  = 3 << 20 // 3 MiB guard against runaway responses
	maxCaptionBody    = 2 << 20
	maxTimedTextBody  = 2 << 20
	potokenExperiment = "&exp=xpe"
)

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	HL            string `json:"hl"`
	GL            string `json:"gl"`
	VisitorData   string `json:"visitorData,omitempty"`
}

type playerRequest struct {
	Context        innertubeContext `json:"context"`
	VideoID        string           `json:"videoId"`
	ContentCheckOK bool             `json:"contentCheckOk"`
	RacyCheckOK    bool             `json:"racyCheckOk"`
}

type nextRequest struct {
	Context      innertubeContext `json:"context"`
	VideoID      string           `json:"videoId,omitempty"`
	Continuation string           `json:"continuation,omitempty"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		Renderer struct {
			CaptionTracks        []captionTrackJSON        `json:"captionTracks"`
			TranslationLanguages []translationLanguageJSON `json:"translationLanguages"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	VideoDetails struct {
		VideoID string `json:"videoId"`
		Title   string `json:"title"`
	} `json:"videoDetails"`
}

type captionTrackJSON struct {
	BaseURL string `json:"baseUrl"`
	Name    struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
	LanguageCode   string `json:"languageCode"`
	Kind           string `json:"kind"`
	IsTranslatable bool   `json:"isTranslatable"`
}

func (t captionTrackJSON) label() string {
	if t.Name.SimpleText != "" {
		return t.Name.SimpleText
	}
	if len(t.Name.Runs) > 0 {
		return t.Name.Runs[0].Text
	}
	return t.LanguageCode
}

type translationLanguageJSON struct {
	LanguageCode string `json:"languageCode"`
	LanguageName struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"languageName"`
}

func (t translationLanguageJSON) label() string {
	if t.LanguageName.SimpleText != "" {
		return t.LanguageName.SimpleText
	}
	if len(t.LanguageName.Runs) > 0 {
		return t.LanguageName.Runs[0].Text
	}
	return t.LanguageCode
}
