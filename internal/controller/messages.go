package controller

// User-facing messages.
const (
	MsgTitleRequired = "タイトルは必須です。"
	MsgDueRequired   = "期日は必須です。"
	MsgServerError   = "サーバーエラーが発生しました。"
	MsgSortFailed    = "ソートに失敗しました。"
	MsgFetchFailed   = "データの取得に失敗しました。"
	MsgConfirmDelete = "このタスクを削除しますか？"
)
