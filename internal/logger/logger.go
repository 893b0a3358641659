// Package logger는 구조화된 로깅을 제공합니다.
// 모든 출력은 민감 정보(API 키, 액세스 토큰)를 마스킹한 뒤 기록됩니다.
package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/insajin/mcp-workflow/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// keyValuePattern은 KEY=value, "KEY":"value" 형태의 비밀 값을 찾습니다.
var keyValuePattern = regexp.MustCompile(`(?i)\b([a-z0-9_]*(?:token|key|secret|password)[a-z0-9_]*)(["']?\s*[=:]\s*["']?)([^\s"',}]{10,})`)

// 민감 정보 패턴 (키-값 패턴 이후에 적용)
var sensitivePatterns = []*regexp.Regexp{
	// GitHub 개인 액세스 토큰
	regexp.MustCompile(`ghp_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`),
	// OpenAI/Anthropic 스타일 키
	regexp.MustCompile(`sk-[A-Za-z0-9\-_]{20,}`),
	// Bearer 토큰
	regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_\.]{9,}`),
	// JWT 토큰 패턴 (eyJ로 시작하는 Base64)
	regexp.MustCompile(`eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+`),
}

// maskedWriter는 민감 정보를 마스킹하는 io.Writer입니다.
type maskedWriter struct {
	underlying io.Writer
}

// Write는 민감 정보를 마스킹한 후 기록합니다.
// 호출자에게는 원본 길이를 반환해야 zerolog가 short write로 판단하지 않습니다.
func (w *maskedWriter) Write(p []byte) (int, error) {
	masked := MaskSensitive(string(p))
	if _, err := w.underlying.Write([]byte(masked)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// NewMaskedWriter는 마스킹 Writer를 생성합니다.
func NewMaskedWriter(w io.Writer) io.Writer {
	return &maskedWriter{underlying: w}
}

// Setup은 전역 로거를 초기화합니다.
// stdout은 명령 출력과 MCP stdio 전송에 쓰이므로 로그는 기본적으로 stderr로 보냅니다.
func Setup(cfg config.LoggingConfig) {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stderr
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			log.Warn().Err(err).Str("file", cfg.File).Msg("로그 파일을 열 수 없어 stderr를 사용합니다")
		} else {
			output = file
		}
	}

	log.Logger = New(output, cfg.Format)
}

// New는 주어진 출력과 포맷으로 마스킹이 적용된 로거를 생성합니다.
func New(output io.Writer, format string) zerolog.Logger {
	masked := NewMaskedWriter(output)
	if format == "text" {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        masked,
			TimeFormat: time.Kitchen,
		}
		return zerolog.New(consoleWriter).With().Timestamp().Logger()
	}
	return zerolog.New(masked).With().Timestamp().Logger()
}

// parseLevel은 문자열 레벨을 zerolog.Level로 변환합니다.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// MaskSensitive는 문자열에서 민감 정보를 마스킹합니다.
func MaskSensitive(input string) string {
	result := keyValuePattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := keyValuePattern.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		return parts[1] + parts[2] + maskValue(parts[3])
	})

	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer") {
				token := strings.TrimSpace(strings.TrimPrefix(match, "Bearer"))
				return "Bearer " + maskValue(token)
			}
			return maskValue(match)
		})
	}
	return result
}

// maskValue는 값을 마스킹합니다.
// 앞 4자와 뒤 4자만 남기고 나머지는 ***로 대체합니다.
func maskValue(value string) string {
	value = strings.TrimSpace(value)
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}

// WithServer는 MCP 서버 이름을 컨텍스트에 추가한 로거를 반환합니다.
func WithServer(name string) zerolog.Logger {
	return log.With().Str("server", name).Logger()
}

// WithWorkflow는 워크플로 ID를 컨텍스트에 추가한 로거를 반환합니다.
func WithWorkflow(id string) zerolog.Logger {
	return log.With().Str("workflow", id).Logger()
}
