package handler

type ContextKey string

var (
	RoleCtxKey       ContextKey = "role"
	SubCtxKey        ContextKey = "sub"
	RequestIDCtxKey  ContextKey = "requestID"
	MyInfoCtx        ContextKey = "myInfo"
	UserInfoCtx      ContextKey = "userInfo"
	EngineerCtx      ContextKey = "engineer"
	AssignmentCtx    ContextKey = "assignment"
	FutureProjectCtx ContextKey = "futureProject"
)
