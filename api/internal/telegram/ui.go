package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbAnalyze = "analyze"

	commandsHint = "命令: /help /clear /engine"
	helpText     = "智能肺结节影像分析系统\n\n" +
		"1. 上传胸片 (照片或图片文件)\n" +
		"2. 点击“开始 AI 检测”，系统将识别可疑结节位置\n" +
		"3. 查看热力图定位及风险等级报告，辅助临床决策\n\n" +
		commandsHint + "\n\n" +
		"本结果由AI生成，仅供参考，不能替代专业医生诊断。"
	imageLoadedText = "影像已加载。点击下方按钮开始分析。"
	analyzingText   = "深度学习分析中\n正在检索病理特征并匹配医学数据库..."
	busyText        = "分析进行中，请稍候…"
	noImageText     = "请先上传一张胸片。"
	clearedText     = "已清除当前影像。"
	failedText      = "分析失败，请检查网络或API配置。"
	timeoutText     = "分析超时，请重试。"
)

func analyzeKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("开始 AI 检测", cbAnalyze)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}
