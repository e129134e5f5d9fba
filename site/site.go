// Package site is the request-facing surface: a gin server rendering the
// home page (profile card + article list) and article pages with the
// translation pipeline behind them.
package site

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polyblog/polyblog/config"
	"github.com/polyblog/polyblog/i18n"
	"github.com/polyblog/polyblog/langmeta"
	"github.com/polyblog/polyblog/post"
	"github.com/polyblog/polyblog/render"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Server wires the stores and the renderer into HTTP handlers.
type Server struct {
	cfg      *config.Config
	store    *post.Store
	renderer *render.Renderer
	profile  *Profile
}

// New builds a Server.
func New(cfg *config.Config, store *post.Store, renderer *render.Renderer, profile *Profile) *Server {
	return &Server{cfg: cfg, store: store, renderer: renderer, profile: profile}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"T":        i18n.T,
		"langName": langmeta.NativeName,
		"langFlag": func(lang string) string { return langmeta.Resolve(lang).Flag },
		"add":      func(a, b int) int { return a + b },
		"sub":      func(a, b int) int { return a - b },
		"year":     func() int { return time.Now().Year() },
	}).ParseFS(templateFS, "templates/*.tmpl"))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", s.handleRoot)
	r.GET("/healthz", s.handleHealth)
	r.GET("/:lang", s.handleHome)
	r.GET("/:lang/posts/:slug", s.handleArticle)

	return r
}

func (s *Server) handleRoot(c *gin.Context) {
	c.Redirect(http.StatusFound, "/"+s.cfg.DefaultLang)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// langSwitch is one entry of the language switcher.
type langSwitch struct {
	Lang   string
	Name   string
	Flag   string
	Active bool
}

func (s *Server) switcher(active string) []langSwitch {
	out := make([]langSwitch, 0, len(s.cfg.Languages))
	for _, l := range s.cfg.Languages {
		meta := langmeta.Resolve(l)
		out = append(out, langSwitch{Lang: l, Name: meta.Name, Flag: meta.Flag, Active: l == active})
	}
	return out
}

func (s *Server) handleHome(c *gin.Context) {
	lang := c.Param("lang")
	if !s.cfg.HasLanguage(lang) {
		s.notFound(c, s.cfg.DefaultLang)
		return
	}

	posts, err := s.store.List()
	if err != nil {
		c.String(http.StatusInternalServerError, "listing posts: %v", err)
		return
	}

	page := pageParam(c.Query("page"))
	totalPages := (len(posts) + s.cfg.PageSize - 1) / s.cfg.PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * s.cfg.PageSize
	end := min(start+s.cfg.PageSize, len(posts))
	pagePosts := posts[start:end]

	// Translate list metadata for posts authored in another language.
	// Best-effort: failures leave the original titles in place.
	pagePosts = s.renderer.TranslateMeta(c.Request.Context(), pagePosts, lang)

	c.HTML(http.StatusOK, "home.tmpl", gin.H{
		"Lang":      lang,
		"Profile":   s.profile,
		"Default":   s.cfg.DefaultLang,
		"Posts":     pagePosts,
		"Page":      page,
		"Total":     totalPages,
		"HasPrev":   page > 1,
		"HasNext":   page < totalPages,
		"Languages": s.switcher(lang),
	})
}

func (s *Server) handleArticle(c *gin.Context) {
	lang := c.Param("lang")
	if !s.cfg.HasLanguage(lang) {
		s.notFound(c, s.cfg.DefaultLang)
		return
	}

	p, err := s.store.Load(c.Param("slug"))
	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			s.notFound(c, lang)
			return
		}
		c.String(http.StatusInternalServerError, "loading post: %v", err)
		return
	}

	mode := render.ViewTranslated
	if c.Query("view") == "original" {
		mode = render.ViewOriginal
	}

	res, err := s.renderer.Render(c.Request.Context(), p, lang, mode)
	if err != nil {
		c.String(http.StatusInternalServerError, "rendering post: %v", err)
		return
	}

	toggleURL := ""
	if res.ToggleAvailable {
		toggleURL = "/" + lang + "/posts/" + p.Slug
		if res.ToggleMode == render.ViewOriginal {
			toggleURL += "?view=original"
		}
	}

	c.HTML(http.StatusOK, "post.tmpl", gin.H{
		"Lang":       lang,
		"Post":       p,
		"Title":      res.Title,
		"Content":    res.HTML,
		"Translated": res.Translated,
		"Toggle":     res.ToggleAvailable,
		"ToggleURL":  toggleURL,
		"ToggleMode": string(res.ToggleMode),
		"Languages":  s.switcher(lang),
	})
}

func (s *Server) notFound(c *gin.Context, lang string) {
	c.HTML(http.StatusNotFound, "404.tmpl", gin.H{"Lang": lang})
}

func pageParam(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
