package main

// General API documentation for swaggo. Run `swag init -g cmd/dingd/docs.go -o internal/apidocs`
// to regenerate internal/apidocs.
//
// @title           dingd API
// @version         1.0
// @description     DingTalk robot and mini-app callback dispatcher.
//
// @BasePath  /
//
// @schemes http https
