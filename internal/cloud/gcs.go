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

package cloud

import (
	"fmt"
	"strings"
)

// GCSObject identifies one object in Cloud Storage.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

func (o GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// ParseGCSURI splits "gs://bucket/path/to/object" into bucket and object.
func ParseGCSURI(uri string) (GCSObject, error) {
	const scheme = "gs://"
	if !strings.HasPrefix(uri, scheme) {
		return GCSObject{}, fmt.Errorf("invalid GCS URI %q: missing %s prefix", uri, scheme)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return GCSObject{}, fmt.Errorf("invalid GCS URI %q: unable to determine bucket and object", uri)
	}
	return GCSObject{Bucket: parts[0], Name: parts[1]}, nil
}
