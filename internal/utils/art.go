package utils

// UpDriveArt is the CLI banner.
const UpDriveArt = `
 _   _       ____       _
| | | |_ __ |  _ \ _ __(_)_   _____
| | | | '_ \| | | | '__| \ \ / / _ \
| |_| | |_) | |_| | |  | |\ V /  __/
 \___/| .__/|____/|_|  |_| \_/ \___|
      |_|`
