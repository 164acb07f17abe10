// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services holds the data-access side of the application: the
// project run tracker and its BigQuery history, and the GCS staging area for
// uploads. The BigQuery SQL lives in this file; table names are injected with
// fmt.Sprintf, values are bound as query parameters.
package services

const (
	// QryFindRunById looks up one run record. Placeholder: the fully
	// qualified run table. Parameter: @id.
	QryFindRunById = "SELECT * FROM `%s` WHERE id = @id ORDER BY complete_date DESC LIMIT 1"

	// QryRecentRuns lists the latest runs. Placeholder: the fully qualified
	// run table. Parameter: @limit.
	QryRecentRuns = "SELECT * FROM `%s` ORDER BY create_date DESC LIMIT @limit"
)
