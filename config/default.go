package config

import _ "embed"

// DefaultConfigYAML 嵌入的默认配置
// jwt.secret 故意留空：必须由外部配置或环境变量提供
//
//go:embed default.yaml
var DefaultConfigYAML []byte
