package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           tarotd API
// @version         1.0
// @description     HTTP API for tarot card readings generated by an LLM.
//
// @contact.name   tarotd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
