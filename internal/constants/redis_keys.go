package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// InterviewModulePrefix 面试分析模块
	InterviewModulePrefix = "interview"

	// EntitySession 分析会话实体
	EntitySession = "session"
	// EntityCursor 问题游标实体
	EntityCursor = "cursor"

	// KeyInterviewSession 分析会话状态 (STRING, JSON序列化的Session)
	// 格式: app:interview:session:{sessionID}
	KeyInterviewSession = AppPrefix + ":" + InterviewModulePrefix + ":" + EntitySession + ":%s"

	// KeyInterviewCursor 问题游标 (STRING, 整数)
	// 格式: app:interview:cursor:{sessionID}
	KeyInterviewCursor = AppPrefix + ":" + InterviewModulePrefix + ":" + EntityCursor + ":%s"
)
