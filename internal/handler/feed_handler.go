package handler

import (
	"context"
	"encoding/xml"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/shortpost/internal/model"
)

// feedTitleLength はRSSアイテムのタイトルに使う本文の先頭文字数。
const feedTitleLength = 40

// PostLister はRSSフィードの生成に必要な投稿一覧の取得処理。
type PostLister interface {
	List(ctx context.Context, page int) (*model.PostPage, error)
}

// FeedConfig はRSSフィードのチャンネル情報。
type FeedConfig struct {
	Title       string
	Description string
	BaseURL     string // フロントエンドの公開URL。アイテムのリンクに使う
}

// FeedHandler は最新投稿をRSS 2.0で配信するHTTPハンドラー。
type FeedHandler struct {
	posts  PostLister
	config FeedConfig
	now    func() time.Time
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(posts PostLister, config FeedConfig) *FeedHandler {
	return &FeedHandler{
		posts:  posts,
		config: config,
		now:    time.Now,
	}
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	Author      string  `xml:"author,omitempty"`
	GUID        rssGUID `xml:"guid"`
	PubDate     string  `xml:"pubDate"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Feed は最新ページの投稿をRSS 2.0として返す。
// GET /api/posts/feed.xml
func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	page, err := h.posts.List(r.Context(), 1)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	baseURL := strings.TrimRight(h.config.BaseURL, "/")
	channel := rssChannel{
		Title:         h.config.Title,
		Link:          baseURL + "/",
		Description:   h.config.Description,
		LastBuildDate: h.now().UTC().Format(time.RFC1123Z),
		Items:         make([]rssItem, 0, len(page.Posts)),
	}
	for _, p := range page.Posts {
		channel.Items = append(channel.Items, newRSSItem(baseURL, p))
	}

	out, err := xml.MarshalIndent(rssDocument{Version: "2.0", Channel: channel}, "", "  ")
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(out)
}

func newRSSItem(baseURL string, p *model.Post) rssItem {
	id := strconv.FormatInt(p.ID, 10)
	item := rssItem{
		Title:       feedTitle(p.Content),
		Link:        baseURL + "/posts/" + id,
		Description: p.Content,
		GUID:        rssGUID{Value: "post-" + id},
		PubDate:     p.CreatedAt.UTC().Format(time.RFC1123Z),
	}
	if p.AuthorName != nil {
		item.Author = *p.AuthorName
	}
	return item
}

// feedTitle は本文の先頭を切り出してタイトルにする。
func feedTitle(content string) string {
	if utf8.RuneCountInString(content) <= feedTitleLength {
		return content
	}
	return string([]rune(content)[:feedTitleLength]) + "…"
}
