package command

import (
	"bangumi-calendar-service/internal/service"
)

const (
	msgTodayFailed   = "获取今日番剧失败"
	msgSearchFailed  = "番剧搜索失败"
	msgDetailFailed  = "获取番剧详情失败"
	msgCommandFailed = "指令执行失败"

	msgTimeout     = "：请求 Bangumi 超时，请稍后重试。"
	msgNetwork     = "：网络异常，请稍后重试。"
	msgBadStatus   = "：Bangumi 接口返回非 200 状态码"
	msgInvalidJSON = "：Bangumi 接口返回了无效 JSON"
	msgMalformed   = "：Bangumi 接口返回数据结构异常"
	msgUnknown     = "：发生未知错误，请稍后重试。"

	msgTodayEmpty   = "今日暂无番剧数据。"
	msgWeekdayEmpty = "%s暂无番剧数据。"
	msgSearchEmpty  = "未找到与「%s」相关的番剧。"
	msgNotFound     = "未找到 ID 为 %d 的番剧条目。"

	usageSearch = "用法：番剧搜索 <关键词>"
	usageDetail = "用法：番剧详情 <条目ID>（正整数）"
)

// failureText maps an error to the localized message shown in chat
func failureText(prefix string, err error) string {
	switch service.KindOf(err) {
	case service.KindTimeout:
		return prefix + msgTimeout
	case service.KindNetwork:
		return prefix + msgNetwork
	case service.KindBadStatus, service.KindNotFound:
		return prefix + msgBadStatus
	case service.KindMalformedPayload:
		if service.IsInvalidJSON(err) {
			return prefix + msgInvalidJSON
		}
		return prefix + msgMalformed
	default:
		return prefix + msgUnknown
	}
}

// weekdayFailedPrefix is e.g. "获取周一新番失败"
func weekdayFailedPrefix(label string) string {
	return "获取" + label + "新番失败"
}
