package main

// General API documentation for swaggo. Run `swag init` to regenerate docs.
//
// @title           visiond API
// @version         1.0
// @description     HTTP API for multi-framework model loading and inference.
//
// @contact.name   visiond maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
