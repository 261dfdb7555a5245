// Package api 内嵌 OpenAPI 文档与在线文档页面
package api

import "embed"

//go:embed openapi/*.yaml
var OpenAPIFS embed.FS

//go:embed docs/index.html
var DocsFS embed.FS
