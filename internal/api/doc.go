// Package api 註冊 REST 路由與 /ws 連線端點。
//
// handlers 子套件負責註冊登入、通知、社群與私訊紀錄，
// 即時事件則交給 service.WebSocketService 處理。
package api
