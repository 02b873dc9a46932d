// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package constants

const (
	// AppName is used for the data directory and the metrics namespace.
	AppName = "htapp"

	// SchemaVersion is the version of the relational schema created by this binary.
	// A database written by a newer major version is refused at startup.
	SchemaVersion = "1.0.0"

	// DefaultDatabaseFile is the file name of the relational store inside the data directory.
	DefaultDatabaseFile = "htapp.db"

	// DefaultConfigFile is the optional YAML configuration file inside the data directory.
	DefaultConfigFile = "htapp.yaml"

	// SingletonRowID is the id of the single row in admin_settings and app_settings.
	SingletonRowID = "default"

	// DefaultGradeCount is the number of grade classes seeded into an empty database.
	DefaultGradeCount = 11
)
