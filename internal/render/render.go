package render

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"tmpmail/backend/internal/domain"
	"tmpmail/backend/internal/locale"
)

// 页面路由
const (
	RouteHome     = "home"
	RouteAuth     = "auth"
	RouteNotFound = "not-found"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ScriptPath 页面脚本的访问路径
const ScriptPath = "/assets/app.js"

// Assets 返回页面引用的静态文件，根目录下为 app.js
func Assets() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Page 一次渲染所需的路由与数据
type Page struct {
	Route            string
	Locale           string
	Email            string
	Emails           []domain.EmailView // 当前地址收到的邮件，新的在前
	TurnstileSiteKey string
	PasswordEnabled  bool
	Error            string
}

// Renderer 将页面写入 w，ctx 取消时中止渲染
type Renderer interface {
	Render(ctx context.Context, w io.Writer, page Page) error
}

// TemplateRenderer 基于内嵌 html/template 的渲染器
type TemplateRenderer struct {
	pages map[string]*template.Template
}

// New 解析内嵌模板
func New() (*TemplateRenderer, error) {
	files := map[string]string{
		RouteHome:     "templates/home.html",
		RouteAuth:     "templates/auth.html",
		RouteNotFound: "templates/notfound.html",
	}

	funcs := template.FuncMap{
		"t":      translate,
		"path":   locale.Prefix,
		"script": func() string { return ScriptPath },
	}

	pages := make(map[string]*template.Template, len(files))
	for route, file := range files {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", file, err)
		}
		pages[route] = tmpl
	}

	return &TemplateRenderer{pages: pages}, nil
}

// Render 渲染页面布局及其嵌套的路由内容
func (r *TemplateRenderer) Render(ctx context.Context, w io.Writer, page Page) error {
	tmpl, ok := r.pages[page.Route]
	if !ok {
		return fmt.Errorf("unknown page route %q", page.Route)
	}
	if page.Locale == "" {
		page.Locale = locale.English
	}

	if err := tmpl.ExecuteTemplate(&contextWriter{ctx: ctx, w: w}, "layout.html", page); err != nil {
		return fmt.Errorf("render %s: %w", page.Route, err)
	}
	return nil
}

// contextWriter 在每次写入前检查 ctx，客户端断开后模板执行随之结束
type contextWriter struct {
	ctx context.Context
	w   io.Writer
}

func (cw *contextWriter) Write(p []byte) (int, error) {
	if err := cw.ctx.Err(); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}
