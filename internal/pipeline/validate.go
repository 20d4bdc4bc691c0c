package pipeline

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidResume 简历文本缺少可识别的教育经历段落。
var ErrInvalidResume = errors.New("resume text must contain an education section like \"Education:\" followed by \"- <degree>, <institution>, <start>-<end>\"")

var (
	educationHeaderRe = regexp.MustCompile(`(?mi)^\s*education\s*:?\s*$`)
	educationEntryRe  = regexp.MustCompile(`(?m)^\s*-\s*[^,\n]+,\s*[^,\n]+,\s*\d{4}\s*-\s*\d{4}\s*$`)
)

// ValidateResumeText 校验简历文本是否包含形如
//
//	Education:
//	- B.S., State U, 2016-2020
//
// 的教育经历段落。任何阶段执行之前的硬性入口检查：
// 不满足时返回 ErrInvalidResume，而不是静默产出空结果。
func ValidateResumeText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidResume
	}
	if !educationHeaderRe.MatchString(text) {
		return ErrInvalidResume
	}
	if !educationEntryRe.MatchString(text) {
		return ErrInvalidResume
	}
	return nil
}
